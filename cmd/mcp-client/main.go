// Command mcp-client is an interactive shell for the timestick MCP server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client [<server-command> [<args>]]")
		fmt.Fprintln(os.Stderr, "Without a command, runs \"timestick mcp --simulate\".")
	}
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		args = []string{"timestick", "mcp", "--simulate"}
	}

	ctx := context.Background()

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "timestick-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	fmt.Println("Connected to timestick MCP server")
	fmt.Println("Commands:")
	fmt.Println("  /device [history]  - Current device data")
	fmt.Println("  /history [n]       - Offset and throughput history")
	fmt.Println("  /alerts [level]    - Recent alerts")
	fmt.Println("  /start, /stop      - Control the monitor")
	fmt.Println("  /tools             - List tools")
	fmt.Println("  /exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "/exit", "/quit":
			return
		case "/tools":
			listTools(ctx, session)
		case "/device":
			args := map[string]any{}
			if len(parts) > 1 && parts[1] == "history" {
				args["include_history"] = true
			}
			callTool(ctx, session, "get_device_data", args)
		case "/history":
			args := map[string]any{}
			if len(parts) > 1 {
				n, err := strconv.Atoi(parts[1])
				if err != nil || n < 0 {
					fmt.Println("limit must be a non-negative number")
					continue
				}
				args["limit"] = n
			}
			callTool(ctx, session, "get_history", args)
		case "/alerts":
			args := map[string]any{}
			if len(parts) > 1 {
				args["level"] = parts[1]
			}
			callTool(ctx, session, "get_alerts", args)
		case "/start":
			callTool(ctx, session, "start_monitoring", map[string]any{})
		case "/stop":
			callTool(ctx, session, "stop_monitoring", map[string]any{})
		default:
			fmt.Printf("unknown command %q\n", parts[0])
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, name string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		log.Printf("Error calling %s: %v", name, err)
		return
	}
	printResult(result)
}

func printResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Print("error: ")
	}
	if result.StructuredContent != nil {
		if out, err := json.MarshalIndent(result.StructuredContent, "", "  "); err == nil {
			fmt.Println(string(out))
			return
		}
	}
	for _, content := range result.Content {
		if v, ok := content.(*mcp.TextContent); ok {
			fmt.Println(v.Text)
			continue
		}
		out, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			fmt.Printf("%+v\n", content)
			continue
		}
		fmt.Println(string(out))
	}
}
