package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/quillpost/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret
//	-t int      session token lifetime, minutes
//	-k int      bcrypt cost
//	-f string   frontend origin
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Arguments are filtered with flagx.FilterArgs first so -c/-config and other
// components' flags do not cause parse errors.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-k", "-f", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session token secret key")
	sessionTTL := fs.Int("t", int(config.SessionTokenTTL.Minutes()), "session token lifetime (in minutes)")
	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.FrontendURL, "f", config.FrontendURL, "frontend origin")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Only an explicit -t overrides, so sub-minute JSON values survive.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTokenTTL = time.Duration(*sessionTTL) * time.Minute
		}
	})
}
