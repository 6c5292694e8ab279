package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/flagx"
)

// flagNames lists the short flags owned by this package.
var flagNames = []string{"-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e", "-l", "-f", "-r", "-w", "-k", "-i"}

// NewFlagSet returns a flag set bound to c.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   log level
//	-f string   log format (json|text)
//	-r int      cascade retries
//	-w int      blob delete concurrency
//	-k int      identity cache size
//	-i int      identity cache TTL, seconds
func NewFlagSet(c *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("equipkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
	fs.StringVar(&c.SecretKey, "s", c.SecretKey, "secret key")
	fs.Var(unitDuration{d: &c.AccessTokenValidityDuration, unit: time.Minute}, "t", "access token validity (in minutes)")
	fs.StringVar(&c.S3RootUser, "u", c.S3RootUser, "S3 root user")
	fs.StringVar(&c.S3RootPassword, "p", c.S3RootPassword, "S3 root password")
	fs.StringVar(&c.S3Bucket, "b", c.S3Bucket, "S3 bucket")
	fs.StringVar(&c.S3Region, "g", c.S3Region, "S3 region")
	fs.StringVar(&c.S3BaseEndpoint, "e", c.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&c.LogFormat, "f", c.LogFormat, "log format (json|text)")
	fs.IntVar(&c.CascadeRetries, "r", c.CascadeRetries, "cascade delete attempts")
	fs.IntVar(&c.BlobDeleteConcurrency, "w", c.BlobDeleteConcurrency, "parallel blob deletions")
	fs.IntVar(&c.IdentityCacheSize, "k", c.IdentityCacheSize, "identity cache size")
	fs.Var(unitDuration{d: &c.IdentityCacheTTL, unit: time.Second}, "i", "identity cache TTL (in seconds)")

	return fs
}

// parseFlags overlays config fields from the short flags in args. Other
// arguments are filtered out first with flagx.FilterArgs so subcommands and
// their own flags do not collide.
func parseFlags(config *Config, args []string) error {
	filtered := flagx.FilterArgs(args, flagNames)
	if err := NewFlagSet(config).Parse(filtered); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

// unitDuration is an integer flag counted in unit.
type unitDuration struct {
	d    *time.Duration
	unit time.Duration
}

func (u unitDuration) String() string {
	if u.d == nil || u.unit == 0 {
		return "0"
	}
	return strconv.FormatInt(int64(*u.d/u.unit), 10)
}

func (u unitDuration) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*u.d = time.Duration(n) * u.unit
	return nil
}
