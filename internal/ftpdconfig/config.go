// Package ftpdconfig binds the ftpd command's flags to environment
// variables via viper, mirroring the HW1_*-prefixed scheme of the system
// this server's wire behavior is modeled on (renamed to FTPD_*).
package ftpdconfig

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the fully resolved settings for one ftpd invocation.
type Config struct {
	Host         string
	Port         int
	Root         string
	UserDBPath   string
	AuthDisabled bool
	Quiet        bool
}

// BindFlags registers cmd's flags and binds them to viper so FTPD_HOST,
// FTPD_PORT, FTPD_ROOT, FTPD_USERDB, FTPD_AUTH_DISABLED, and FTPD_QUIET
// supply any setting not passed on the command line; a flag given on the
// command line takes precedence over its environment variable.
func BindFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "", "address to listen on")
	cmd.Flags().Int("port", 2121, "port to listen on")
	cmd.Flags().String("root", ".", "directory to serve")
	cmd.Flags().String("userdb", "", "path to a tab-separated login/password file")
	cmd.Flags().Bool("auth-disabled", false, "accept any login without checking a password")
	cmd.Flags().Bool("quiet", false, "suppress informational logging")

	viper.BindPFlags(cmd.Flags())

	viper.SetEnvPrefix("FTPD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Load resolves a Config from the values BindFlags bound.
func Load() (*Config, error) {
	root := viper.GetString("root")
	if root == "" {
		return nil, fmt.Errorf("root directory not set")
	}

	return &Config{
		Host:         viper.GetString("host"),
		Port:         viper.GetInt("port"),
		Root:         root,
		UserDBPath:   viper.GetString("userdb"),
		AuthDisabled: viper.GetBool("auth-disabled"),
		Quiet:        viper.GetBool("quiet"),
	}, nil
}

// LoadUserDB reads a tab-separated "login\tpassword" file, one entry per
// line, skipping the first line as a header.
func LoadUserDB(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open user db: %w", err)
	}
	defer f.Close()

	users := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum == 1 {
			continue // header
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("user db line %d: expected \"login\\tpassword\"", lineNum)
		}
		users[parts[0]] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read user db: %w", err)
	}
	return users, nil
}
