package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/logger"
	"github.com/spigell/ai-interviewer/internal/storage/memory"
	"go.uber.org/zap"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a full mock interview in the terminal",
	Run: func(_ *cobra.Command, _ []string) {
		runInterview()
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringP("role", "r", "", "job role to interview for (default \"SDE Intern\")")

	viper.BindPFlag("role", interviewCmd.Flags().Lookup("role"))
}

// runInterview drives the whole pipeline without HTTP: one session against
// the in-memory store, answers gathered at the terminal.
func runInterview() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	role := viper.GetString("role")
	if role == "" {
		role = defaultRole(config)
	}

	manager := newManager(ctx, config, memory.NewStore(), logger)

	session, err := manager.Start(ctx, role)
	if err != nil {
		logger.Fatal("starting session", zap.Error(err))
	}

	fmt.Printf("\nMock interview for the %s role. Press Enter on an empty line to skip a question.\n", role)

	for i, question := range session.Questions {
		fmt.Printf("\nQuestion %d/%d [%s]\n%s\n\n", i+1, len(session.Questions), question.Category, question.Text)

		startedAt := time.Now().UTC()

		prompt := promptui.Prompt{Label: "Your answer"}
		response, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) {
				fmt.Println("\nInterview aborted.")
				return
			}
			logger.Fatal("reading answer", zap.Error(err))
		}

		if strings.TrimSpace(response) == "" {
			continue
		}

		sub := interview.AnswerSubmission{
			QuestionID:   question.ID,
			QuestionText: question.Text,
			ResponseText: response,
			StartedAt:    startedAt.Format(time.RFC3339),
			AnsweredAt:   time.Now().UTC().Format(time.RFC3339),
		}

		if err := manager.SubmitAnswer(ctx, session.ID, sub); err != nil {
			logger.Fatal("submitting answer", zap.Error(err))
		}
	}

	eval, err := manager.Complete(ctx, session.ID)
	if err != nil {
		logger.Fatal("completing session", zap.Error(err))
	}

	printEvaluation(eval)
}

func printEvaluation(eval *interview.Evaluation) {
	fmt.Println("\n=== Evaluation ===")
	fmt.Printf("Technical:       %2d/10  %s\n", eval.Scores.Technical, eval.Feedback.Technical)
	fmt.Printf("Problem solving: %2d/10  %s\n", eval.Scores.ProblemSolving, eval.Feedback.ProblemSolving)
	fmt.Printf("Communication:   %2d/10  %s\n", eval.Scores.Communication, eval.Feedback.Communication)
	fmt.Printf("\n%s\n", eval.Summary)
}
