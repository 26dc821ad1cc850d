package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/codereg/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-m string     metrics bind address ("" disables)
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-x string     DOI prefix
//	-w string     public site URL
//	-l duration   DOI ticket lock timeout (e.g., "5s")
//	-t duration   external sync call timeout
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint
//	-i string     search index URL
//	-f string     log format (json|zerolog)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so the -c/-config flag and foreign flags are ignored.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-m", "-d", "-s", "-x", "-w", "-l", "-t", "-u", "-p", "-b", "-g", "-e", "-i", "-f",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for the metrics endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.DOIPrefix, "x", config.DOIPrefix, "DOI prefix")
	fs.StringVar(&config.SiteURL, "w", config.SiteURL, "public site URL")
	fs.DurationVar(&config.LockTimeout, "l", config.LockTimeout, "DOI reservation lock timeout")
	fs.DurationVar(&config.SyncTimeout, "t", config.SyncTimeout, "external sync call timeout")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 archive bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.IndexURL, "i", config.IndexURL, "search index URL")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (json|zerolog)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
