package command

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"carecircle/internal/model"
	"carecircle/internal/reconcile"
)

func parseSubject(subjectType, id string) (string, uuid.UUID, error) {
	subjectType = strings.ToLower(strings.TrimSpace(subjectType))
	if !model.ValidSubject(subjectType) {
		return "", uuid.Nil, fmt.Errorf("subject must be question or comment, got %q", subjectType)
	}
	subjectID, err := uuid.Parse(id)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid %s id: %s", subjectType, id)
	}
	return subjectType, subjectID, nil
}

func formatCounts(c model.ReactionCounts) string {
	mine := "none"
	if c.UserReaction != nil {
		mine = *c.UserReaction
	}
	return fmt.Sprintf("%d likes, %d dislikes (you: %s)", c.LikesCount, c.DislikesCount, mine)
}

// NewReactCmd creates the react command.
func NewReactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "react <question|comment> <id> <like|dislike>",
		Short: "Toggle a like or dislike",
		Long:  "Reacting again with the same type removes the reaction; the other type switches it.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			subjectType, subjectID, err := parseSubject(args[0], args[1])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			reactionType := strings.ToLower(args[2])
			if !model.ValidReaction(reactionType) {
				return writeCommandError(cmd, fmt.Errorf("reaction must be like or dislike, got %q", args[2]))
			}

			board := reconcile.NewReactionBoard(ctx.Client, ctx.Logger)
			state, err := board.Toggle(cmd.Context(), subjectType, subjectID, reactionType)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return printJSON(cmd, state)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", state.Action, formatCounts(state.ReactionCounts))
			return nil
		},
	}
}

// NewReactionsCmd creates the reactions command.
func NewReactionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reactions <question|comment> <id>",
		Short: "Show reaction counts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			subjectType, subjectID, err := parseSubject(args[0], args[1])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			state, err := ctx.Client.Reactions(cmd.Context(), subjectType, subjectID)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return printJSON(cmd, state)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatCounts(state.ReactionCounts))
			return nil
		},
	}
}

// NewQuestionsCmd creates the questions command group.
func NewQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "questions",
		Aliases: []string{"q"},
		Short:   "Browse and post to the forum",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestionsList(cmd)
		},
	}

	ask := &cobra.Command{
		Use:   "ask",
		Short: "Post a question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			title, _ := cmd.Flags().GetString("title")
			content, _ := cmd.Flags().GetString("content")
			q, err := ctx.Client.Ask(cmd.Context(), title, content)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return printJSON(cmd, q)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted question %s\n", q.ID)
			return nil
		},
	}
	ask.Flags().String("title", "", "question title")
	ask.Flags().String("content", "", "question body")
	_ = ask.MarkFlagRequired("title")
	_ = ask.MarkFlagRequired("content")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recent questions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuestionsList(cmd)
			},
		},
		ask,
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a question with its comments",
			Args:  cobra.ExactArgs(1),
			RunE:  runQuestionShow,
		},
		&cobra.Command{
			Use:   "comment <id> <text>",
			Short: "Comment on a question",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, err := GetContext(cmd)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				qid, err := uuid.Parse(args[0])
				if err != nil {
					return writeCommandError(cmd, fmt.Errorf("invalid question id: %s", args[0]))
				}
				c, err := ctx.Client.Comment(cmd.Context(), qid, strings.Join(args[1:], " "))
				if err != nil {
					return writeCommandError(cmd, err)
				}
				if ctx.JSONMode {
					return printJSON(cmd, c)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Posted comment %s\n", c.ID)
				return nil
			},
		},
	)
	return cmd
}

func runQuestionsList(cmd *cobra.Command) error {
	ctx, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	questions, err := ctx.Client.Questions(cmd.Context())
	if err != nil {
		return writeCommandError(cmd, err)
	}
	if ctx.JSONMode {
		return printJSON(cmd, questions)
	}
	if len(questions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No questions yet")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tCOMMENTS")
	for _, q := range questions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", q.ID, q.Title, q.Author.Name, q.CommentsCount)
	}
	return w.Flush()
}

func runQuestionShow(cmd *cobra.Command, args []string) error {
	ctx, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	qid, err := uuid.Parse(args[0])
	if err != nil {
		return writeCommandError(cmd, fmt.Errorf("invalid question id: %s", args[0]))
	}
	q, comments, err := ctx.Client.Question(cmd.Context(), qid)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	if ctx.JSONMode {
		return printJSON(cmd, map[string]any{"question": q, "comments": comments})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n  by %s, %s\n\n%s\n\n", q.Title, q.Author.Name, formatCounts(q.Reactions), q.Content)
	for _, c := range comments {
		fmt.Fprintf(out, "- [%s] %s: %s\n    %s\n", c.ID, c.Author.Name, c.Content, formatCounts(c.Reactions))
	}
	return nil
}
