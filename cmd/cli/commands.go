package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	mode         string
	userID       string
	winnerID     string
	player1Score int
	player2Score int
)

func init() {
	joinCmd.Flags().StringVar(&mode, "mode", "classic", "Game mode pool (classic or arcade)")
	joinCmd.Flags().StringVar(&userID, "user", "", "User id")
	joinCmd.MarkFlagRequired("user")
	leaveCmd.Flags().StringVar(&mode, "mode", "classic", "Game mode pool (classic or arcade)")
	leaveCmd.Flags().StringVar(&userID, "user", "", "User id")
	leaveCmd.MarkFlagRequired("user")
	statusCmd.Flags().StringVar(&mode, "mode", "classic", "Game mode pool (classic or arcade)")
	statusCmd.Flags().StringVar(&userID, "user", "", "User id")
	statusCmd.MarkFlagRequired("user")
	ackCmd.Flags().StringVar(&userID, "user", "", "User id")
	ackCmd.MarkFlagRequired("user")
	registerCmd.Flags().StringVar(&userID, "user", "", "User id")
	registerCmd.MarkFlagRequired("user")
	resultCmd.Flags().StringVar(&winnerID, "winner", "", "Winner user id (omit for no winner)")
	resultCmd.Flags().IntVar(&player1Score, "p1", 0, "Player 1 score")
	resultCmd.Flags().IntVar(&player2Score, "p2", 0, "Player 2 score")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(leaveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ackCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(rankingsCmd)
	rootCmd.AddCommand(tournamentMatchesCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a matchmaking pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/pools/"+mode+"/join", map[string]string{"userId": userID})
	},
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leave a matchmaking pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/pools/"+mode+"/leave", map[string]string{"userId": userID})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pool position and estimated wait",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/pools/" + mode + "/status?userId=" + userID)
	},
}

var ackCmd = &cobra.Command{
	Use:   "ack [matchID]",
	Short: "Acknowledge a proposed match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/matches/"+args[0]+"/ack", map[string]string{"userId": userID})
	},
}

var resultCmd = &cobra.Command{
	Use:   "result [matchID]",
	Short: "Submit a match result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]any{
			"player1Score": player1Score,
			"player2Score": player2Score,
		}
		if winnerID != "" {
			payload["winnerId"] = winnerID
		}
		return performPostRequest("/matches/"+args[0]+"/result", payload)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register [tournamentID]",
	Short: "Register a user for a tournament",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/tournaments/"+args[0]+"/register", map[string]string{"userId": userID})
	},
}

var rankingsCmd = &cobra.Command{
	Use:   "rankings [tournamentID]",
	Short: "Show tournament standings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/tournaments/" + args[0] + "/rankings")
	},
}

var tournamentMatchesCmd = &cobra.Command{
	Use:   "matches [tournamentID]",
	Short: "List the matches of a tournament",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/tournaments/" + args[0] + "/matches")
	},
}

func performGetRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func performPostRequest(endpoint string, payload any) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
