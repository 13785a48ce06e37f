// Command dhtnode runs a single Kademlia DHT participant and an
// interactive shell for driving it: put/get/exit, plus --listen-ip and
// --join flags to configure networking and bootstrap into an existing
// overlay.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
	"github.com/shabnasiraj/d7024e-dhtnode/node"
	"github.com/sirupsen/logrus"
)

// CLIConfig holds the parsed command-line flags for the dhtnode process.
type CLIConfig struct {
	listenIP string
	join     string
}

func parseCLIFlags() *CLIConfig {
	cfg := &CLIConfig{}
	flag.StringVar(&cfg.listenIP, "listen-ip", "", "local address to bind the listening socket to (default: resolved local hostname)")
	flag.StringVar(&cfg.join, "join", "", "address of a seed node to join the network through")
	flag.Parse()
	return cfg
}

func main() {
	os.Exit(run())
}

func run() int {
	cli := parseCLIFlags()

	n, err := node.New(node.Config{ListenIP: cli.listenIP})
	if err != nil {
		logrus.WithError(err).Error("failed to initialize node")
		return 1
	}
	defer n.Close()

	n.Start()
	logrus.WithField("self", n.Self().String()).Info("node started")

	if cli.join != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := n.JoinNetwork(ctx, cli.join); err != nil {
			logrus.WithError(err).Error("failed to join network")
			return 1
		}
	}

	runREPL(n)
	return 0
}

// runREPL implements the put/get/exit interactive shell, including the
// colorized "[N nodes] >" prompt showing the current routing table size.
func runREPL(n *node.Node) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(prompt(n))
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "exit":
			return
		case "put":
			handlePut(n, arg)
		case "get":
			handleGet(n, arg)
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

func prompt(n *node.Node) string {
	const (
		colRed = "\033[91m"
		colEnd = "\033[0m"
	)
	return fmt.Sprintf("%s[%d nodes] %s> ", colRed, n.RoutingTable().Len(), colEnd)
}

func handlePut(n *node.Node, text string) {
	res, err := n.StoreValue(context.Background(), []byte(text))
	if err != nil || res == nil {
		fmt.Println("Failed to store data")
		return
	}
	fmt.Printf("Stored key: %s on %d nodes\n", res.Key.BigInt().String(), res.Success)
}

func handleGet(n *node.Node, keyStr string) {
	keyVal, ok := new(big.Int).SetString(keyStr, 10)
	if !ok {
		fmt.Printf("invalid key %q: not a decimal integer\n", keyStr)
		return
	}
	key := id.FromBigInt(keyVal, node.IDWidth)

	res, err := n.GetValue(context.Background(), key)
	if err != nil || res == nil {
		fmt.Println("Value: None")
		return
	}
	if res.Found {
		fmt.Printf("Value: %s\n", res.Value)
		return
	}
	fmt.Printf("Value: %v\n", res.Closest)
}
