package command

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carecircle/pkg/careclient"
	"carecircle/pkg/logger"
)

const defaultAPIURL = "http://localhost:8080"

// CommandContext provides shared command resources.
type CommandContext struct {
	Client   *careclient.Client
	Tokens   *TokenStore
	JSONMode bool
	Logger   *zap.Logger
}

// GetContext resolves the API client and saved session for a command.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	apiURL, _ := cmd.Flags().GetString("api")
	tokenFile, _ := cmd.Flags().GetString("token-file")
	jsonMode, _ := cmd.Flags().GetBool("json")
	debug, _ := cmd.Flags().GetBool("debug")

	if apiURL == "" {
		apiURL = os.Getenv("CARECIRCLE_API_URL")
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	tokens, err := NewTokenStore(tokenFile)
	if err != nil {
		return nil, err
	}
	token := os.Getenv("CARECIRCLE_TOKEN")
	if token == "" {
		if token, err = tokens.Load(); err != nil {
			return nil, err
		}
	}

	return &CommandContext{
		Client:   careclient.New(apiURL, careclient.WithToken(token)),
		Tokens:   tokens,
		JSONMode: jsonMode,
		Logger:   logger.NewCLILogger(debug),
	}, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
