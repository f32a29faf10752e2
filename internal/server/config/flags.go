package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8001")
//	-d string   PostgreSQL DSN
//	-s string   token signing secret
//	-t int      access token validity, minutes
//	-l int      free plan vault item limit
//	-q int      auth endpoint rate limit, requests per second per IP
//	-r string   Redis address for the shared rate limiter
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name (enables backups)
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// args are filtered with flagx.FilterArgs first, so foreign flags do not
// break parsing. Negative limits are ignored, as in parseEnv. The token validity is given in minutes and only replaces
// the current value when -t is actually present.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-l", "-q", "-r", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	freeItemLimit := fs.Int("l", config.FreeItemLimit, "free plan vault item limit")
	authRateLimit := fs.Int("q", config.AuthRateLimit, "auth requests per second per client IP (0 disables)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for rate limiting")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 backup bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "l":
			setLimit(&config.FreeItemLimit, *freeItemLimit)
		case "q":
			setLimit(&config.AuthRateLimit, *authRateLimit)
		}
	})
}
