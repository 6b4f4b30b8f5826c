package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/rolegate/internal/client"
)

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Long: `Creates an account with one of the roles instrutor, aluno, motorista,
passageiro, ambos, gerente, mecanico or cliente, and stores the returned tokens.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleError(handleRegister(cmd), cmd)
	},
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Log in and store the token pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleError(handleLogin(cmd, args[0]), cmd)
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the refresh token and forget the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session()
		if err != nil {
			return err
		}
		if err := s.Logout(cmd.Context()); err != nil {
			return handleError(err, cmd)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	},
}

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Get a new access token from the stored refresh token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session()
		if err != nil {
			return err
		}
		exp, err := s.Refresh(cmd.Context())
		if err != nil {
			return handleError(err, cmd)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "access token valid until %s\n", exp.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "password (or ROLEGATE_PASSWORD)")
	registerCmd.Flags().String("role", "", "account role")
	registerCmd.Flags().String("name", "", "full name")
	registerCmd.Flags().String("phone", "", "phone number")
	registerCmd.Flags().String("bio", "", "short biography")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("role")

	loginCmd.Flags().String("password", "", "password (or ROLEGATE_PASSWORD)")
}

func password(cmd *cobra.Command) (string, error) {
	pw, _ := cmd.Flags().GetString("password")
	if pw == "" {
		pw = os.Getenv("ROLEGATE_PASSWORD")
	}
	if pw == "" {
		return "", fmt.Errorf("password is required: use --password or ROLEGATE_PASSWORD")
	}
	return pw, nil
}

func handleRegister(cmd *cobra.Command) error {
	pw, err := password(cmd)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	email, _ := f.GetString("email")
	role, _ := f.GetString("role")
	name, _ := f.GetString("name")
	phone, _ := f.GetString("phone")
	bio, _ := f.GetString("bio")

	s, err := session()
	if err != nil {
		return err
	}
	u, err := s.Register(cmd.Context(), client.RegisterRequest{
		Email:           email,
		Password:        pw,
		PasswordConfirm: pw,
		Role:            role,
		FullName:        name,
		Phone:           phone,
		Bio:             bio,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "registered %s as %s (id %d)\n", u.Email, u.Role, u.ID)
	return nil
}

func handleLogin(cmd *cobra.Command, email string) error {
	pw, err := password(cmd)
	if err != nil {
		return err
	}
	s, err := session()
	if err != nil {
		return err
	}
	u, err := s.Login(cmd.Context(), email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", u.Email, u.Role)
	return nil
}
