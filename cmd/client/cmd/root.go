package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iliyamo/rolegate/internal/client"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rolegate",
	Short: "rolegate CLI",
	Long: `rolegate is a command line client for the role-scoped gateway.

Log in once; the token pair is kept in a local file and sent with every
protected command.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.rolegate.yaml)")
	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8080", "server base URL")
	rootCmd.PersistentFlags().String("token-file", "", "token file (default is $HOME/.rolegate/token.json)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token_file", rootCmd.PersistentFlags().Lookup("token-file"))

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, refreshCmd)
	rootCmd.AddCommand(meCmd, coursesCmd, ridesCmd, requestsCmd, projectsCmd, callCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rolegate")
	}

	// ROLEGATE_SERVER, ROLEGATE_TOKEN_FILE
	viper.SetEnvPrefix("rolegate")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// session builds a client session from the resolved flags.
func session() (*client.Session, error) {
	path := viper.GetString("token_file")
	if path == "" {
		var err error
		if path, err = client.DefaultTokenPath(); err != nil {
			return nil, err
		}
	}
	return client.NewSession(viper.GetString("server"), client.NewFileTokenStore(path)), nil
}

// handleError turns client errors into short user-facing messages.
func handleError(err error, cmd *cobra.Command) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, client.ErrNotLoggedIn):
		return fmt.Errorf("%s: not logged in, run `rolegate login` first", cmd.Name())
	case errors.Is(err, client.ErrUnauthorized):
		return fmt.Errorf("%s: %w", cmd.Name(), client.ErrUnauthorized)
	}
	return fmt.Errorf("%s: %w", cmd.Name(), err)
}

// printJSON writes a response body indented to stdout.
func printJSON(cmd *cobra.Command, v any) error {
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 {
			return nil
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		}
		v = decoded
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
