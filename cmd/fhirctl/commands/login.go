package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/fhirworks-io/fhir/internal/auth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		server       string
		tokenURL     string
		username     string
		password     string
		clientID     string
		clientSecret string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to a FHIR server",
		Long:  "Obtain an access token from the server's token endpoint and store it in the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				server = viper.GetString("server")
			}

			if server == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Server endpoint: ")
				server, _ = reader.ReadString('\n')
				server = strings.TrimSpace(server)
			}

			if server == "" {
				return ErrServerRequired
			}

			if tokenURL == "" {
				tokenURL = viper.GetString("token-url")
			}

			if tokenURL == "" {
				tokenURL = strings.TrimSuffix(server, "/") + "/oauth/token"
			}

			config := &auth.OAuth2Config{
				TokenURL:     tokenURL,
				ClientID:     clientID,
				ClientSecret: clientSecret,
			}

			if clientID == "" {
				if username == "" {
					reader := bufio.NewReader(os.Stdin)
					fmt.Print("Username: ")
					username, _ = reader.ReadString('\n')
					username = strings.TrimSpace(username)
				}

				if username == "" {
					return ErrUsernameRequired
				}

				if password == "" {
					fmt.Print("Password: ")

					bytePassword, err := term.ReadPassword(int(syscall.Stdin))
					if err != nil {
						return fmt.Errorf("failed to read password: %w", err)
					}

					password = string(bytePassword)

					fmt.Println()
				}

				config.Username = username
				config.Password = password
			}

			manager := auth.NewOAuth2TokenManager(config)

			token, err := manager.GetToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("authenticating against %s: %w", tokenURL, err)
			}

			viper.Set("server", server)
			viper.Set("token", token)
			viper.Set("token-url", tokenURL)

			err = saveConfig()
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Printf("Successfully logged in to %s\n", server)

			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "FHIR server endpoint")
	cmd.Flags().StringVar(&tokenURL, "token-url", "", "OAuth2 token endpoint (defaults to <server>/oauth/token)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username for the password grant")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password for the password grant")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID for the client_credentials grant")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from the FHIR server",
		Long:  "Clear the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("token", "")

			err := saveConfig()
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Println("Successfully logged out")

			return nil
		},
	}
}
