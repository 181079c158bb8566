package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
)

var knownFlags = []string{
	"-a", "-g", "-d", "-s", "-k", "-t", "-v", "-b",
	"-m", "-P", "-u", "-p", "-f", "-w", "-q", "-l",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   access token HMAC secret
//	-k string   email verification token HMAC secret
//	-t int      access token validity, minutes
//	-v int      email verification token validity, hours
//	-b string   public base URL used in confirmation links
//	-m string   SMTP host (empty: log emails instead of sending)
//	-P int      SMTP port
//	-u string   SMTP user
//	-p string   SMTP password
//	-f string   From address for outgoing mail
//	-w int      mail worker goroutines
//	-q int      mail queue capacity
//	-l string   log level
//
// Duration flags are integers in the documented unit and only applied
// when present on the command line.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run the gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "access token secret key")
	fs.StringVar(&config.EmailSecretKey, "k", config.EmailSecretKey, "email verification token secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	emailTokenValidity := fs.Int("v", int(config.EmailTokenValidityDuration.Hours()), "email_token_validity_duration (in hours)")

	fs.StringVar(&config.PublicBaseURL, "b", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "P", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "u", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "p", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.MailFrom, "f", config.MailFrom, "mail From address")
	fs.IntVar(&config.MailWorkers, "w", config.MailWorkers, "mail workers")
	fs.IntVar(&config.MailQueueSize, "q", config.MailQueueSize, "mail queue size")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// durations are only overridden when given, so a JSON "90s" is not
	// truncated to whole minutes by the flag default
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		case "v":
			config.EmailTokenValidityDuration = time.Duration(*emailTokenValidity) * time.Hour
		}
	})
}
