package main

import (
	"encoding/json"
	"errors"
	"fmt"

	apperrors "faq-assistant/errors"
	"faq-assistant/web/format"
	"faq-assistant/web/types"

	"github.com/spf13/cobra"
)

var (
	askNoSemantic bool
	askJSON       bool
	askHTML       bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer a question from the FAQ",
	Long: `Resolves a question against the FAQ: an exact question match first,
then semantic search, then an LLM answer grounded on the closest entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNoSemantic, "no-semantic", false, "use lexical hints instead of semantic search")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer and stage as JSON")
	askCmd.Flags().BoolVar(&askHTML, "html", false, "render the answer as HTML")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	out := cmd.OutOrStdout()

	useSemantic := !askNoSemantic && (a.Config == nil || a.Config.UseSemantic)
	res := a.Resolver.ResolveDetailed(ctx, args[0], useSemantic)
	if apperrors.IsInvalidInput(res.Err) {
		return errors.New("query must not be empty")
	}

	answer := res.Answer
	if askHTML {
		answer = format.ToHTML(res.Answer)
	}

	if askJSON {
		resp := types.AskResponse{Answer: res.Answer, Stage: string(res.Stage)}
		if askHTML {
			resp.HTML = answer
		}
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, answer)
	return nil
}
