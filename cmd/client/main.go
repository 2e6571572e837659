package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/atinyakov/TodoKeeper/internal/client"
	"github.com/atinyakov/TodoKeeper/internal/models"
)

var (
	version   string
	buildDate string
)

const helpText = `Available commands:
  register <username> <password>
  login <username> <password>
  logout
  list [date|alpha]
  add
  edit <id>
  done <id>
  delete <id>
  exit`

// repl runs the interactive shell loop, accepting commands to manage tasks.
func repl(ctx context.Context, c *client.Client, p *client.Prompter) {
	for {
		line, ok := p.Line("todokeeper> ")
		if !ok {
			break
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println(helpText)
		case "register", "login":
			if len(args) < 3 {
				fmt.Printf("Usage: %s <username> <password>\n", args[0])
				continue
			}
			call := c.Login
			if args[0] == "register" {
				call = c.Register
			}
			id, err := call(ctx, args[1], args[2])
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("Logged in as %s (id %d)\n", id.Username, id.ID)
		case "logout":
			if err := c.Logout(ctx); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("Logged out")
		case "list":
			order := models.SortByDate
			if len(args) > 1 {
				order = models.ParseSortOrder(args[1])
			}
			tasks, err := c.List(ctx, order)
			if err != nil {
				fmt.Println(err)
				continue
			}
			printTasks(tasks)
		case "add":
			task, err := c.Create(ctx, p.PromptForTask())
			if err != nil {
				fmt.Println(err)
				continue
			}
			printTask(task)
		case "edit", "done", "delete":
			if len(args) < 2 {
				fmt.Printf("Usage: %s <id>\n", args[0])
				continue
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				fmt.Println("Invalid id")
				continue
			}
			switch args[0] {
			case "delete":
				if err := c.Delete(ctx, id); err != nil {
					fmt.Println(err)
					continue
				}
				fmt.Println("Task deleted")
			case "done":
				task, err := c.Update(ctx, id, models.TaskPatch{Completed: models.Some(true)})
				if err != nil {
					fmt.Println(err)
					continue
				}
				printTask(task)
			default:
				task, err := c.Update(ctx, id, p.PromptEditTask())
				if err != nil {
					fmt.Println(err)
					continue
				}
				printTask(task)
			}
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func printTasks(tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Println("No tasks")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tTITLE\tDUE")
	for _, t := range tasks {
		due := ""
		if t.DueAt != nil {
			due = *t.DueAt
		}
		done := " "
		if t.Completed {
			done = "x"
		}
		fmt.Fprintf(w, "%d\t[%s]\t%s\t%s\n", t.ID, done, t.Title, due)
	}
	_ = w.Flush()
}

func printTask(t *models.Task) {
	b, _ := json.MarshalIndent(t, "", "  ")
	fmt.Println(string(b))
}

// main parses command-line flags and starts the shell.
func main() {
	var (
		baseURL string
		caFile  string
		showVer bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&caFile, "ca", "", "path to CA cert for a self-signed HTTPS server")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("TodoKeeper Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	var opts []client.Option
	if caFile != "" {
		opts = append(opts, client.WithCA(caFile))
	}
	c, err := client.New(baseURL, opts...)
	if err != nil {
		log.Fatal(err)
	}

	repl(context.Background(), c, client.NewPrompter(os.Stdin, os.Stdout))
}
