package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"optsel/pkg/client"
)

const Prompt = "optsel> "

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Selector server base URL")
	flag.Parse()

	fmt.Printf("optsel CLI (Target: %s)\n", *serverURL)
	cli := client.New(*serverURL)
	fmt.Println("Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "decide", "d":
			handleDecide(cli, line, parts)
		case "feedback", "fb":
			handleFeedback(cli, parts)
		case "discard":
			handleDiscard(cli, parts)
		case "stats":
			handleStats(cli)
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

func handleDecide(cli *client.Client, line string, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: decide <sql text>")
		return
	}
	query := strings.TrimSpace(line[len(parts[0]):])

	start := time.Now()
	resp, err := cli.Decide(query)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%s via %s (ce=%v cm=%v jn=%v) (%v)\n",
		resp.Combination, resp.Origin, resp.CE, resp.CM, resp.JN, duration)
	if resp.DecisionID != 0 {
		fmt.Printf("Exploring: report latency with 'feedback %d <ms>'\n", resp.DecisionID)
	}
}

func handleFeedback(cli *client.Client, parts []string) {
	if len(parts) < 3 {
		fmt.Println("Usage: feedback <decision_id> <latency_ms>")
		return
	}
	id, err1 := strconv.ParseUint(parts[1], 10, 64)
	ms, err2 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil {
		fmt.Println("Error: decision_id must be an integer, latency a number")
		return
	}
	if err := cli.Feedback(id, ms); err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Println("OK")
	}
}

func handleDiscard(cli *client.Client, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: discard <decision_id>")
		return
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		fmt.Println("Error: decision_id must be an integer")
		return
	}
	if err := cli.Discard(id); err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Println("Discarded")
	}
}

func handleStats(cli *client.Client) {
	stats, err := cli.Stats()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	for _, k := range []string{
		"cache_hits", "cache_explores", "rule_decisions",
		"trivial_decisions", "feedback_recorded", "feedback_dropped",
		"pending_feedback",
	} {
		fmt.Printf("  %-18s %d\n", k, stats[k])
	}
}

func printHelp() {
	fmt.Println(`
Commands:
  decide <sql>               Choose passes for a query
  feedback <id> <ms>         Report latency for an exploring decision
  discard <id>               Drop a pending measurement
  stats                      Show decision counters
  exit                       Exit CLI
	`)
}
