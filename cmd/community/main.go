package main

import (
	"Haven/internal/api/config"
	"Haven/internal/api/dto"
	"Haven/internal/client"
	"Haven/internal/community"
	"Haven/internal/model"
	"Haven/internal/pkg/logger"
	"bufio"
	"context"
	"flag"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const usage = `commands:
  list                               show visible posts
  sort newest|popular                change order and reload
  filter <category>|All              filter by category
  search <text>                      search title/content ("search" alone clears)
  post <category>|<title>|<content>  publish a post
  like <post_id>                     toggle like
  comment <post_id> <text>           add a comment
  delete <post_id>                   delete a post (admin)
  uncomment <post_id> <comment_id>   delete a comment (admin)
  reload | help | quit`

func main() {
	if err := config.LoadConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	cfg := config.Cfg.Client

	server := flag.String("server", cfg.ServerURL, "discussion service base url")
	email := flag.String("email", "", "login email")
	password := flag.String("password", "", "login password")
	timeout := flag.Duration("timeout", time.Duration(cfg.TimeoutSeconds)*time.Second, "per-call timeout")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.InitLogger(config.LogConfig{Level: *logLevel})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, logger.TraceIDKey, "cli-"+uuid.NewString())

	api := client.NewDiscussionClient(*server, *timeout)
	view := community.NewView(api,
		community.WithTimeout(*timeout),
		community.WithToastDelay(time.Duration(cfg.ToastSeconds)*time.Second),
		community.WithOnChange(printToast()),
	)
	go func() {
		_ = view.Run(ctx)
	}()

	if *email != "" {
		token, err := api.Login(ctx, *email, *password)
		if err != nil {
			fmt.Fprintln(os.Stderr, "login failed:", err)
			os.Exit(1)
		}
		_ = view.SetSession(community.Session{
			UserID: token.User.Email,
			Name:   token.User.DisplayName,
			Role:   model.Role(token.User.Role),
		})
		fmt.Printf("logged in as %s (%s)\n", token.User.DisplayName, token.User.Role)
	}

	if err := view.Load(); err == nil {
		_ = view.Flush()
		printPosts(view.Visible())
	}

	fmt.Println(usage)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		if quit := run(view, strings.TrimSpace(scanner.Text())); quit {
			return
		}
	}
}

func run(view *community.View, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch cmd {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help":
		fmt.Println(usage)
		return false
	case "list":
		printPosts(view.Visible())
		return false
	case "reload":
		err = view.Load()
	case "sort":
		err = view.SetSort(rest)
	case "filter":
		err = view.SetCategory(rest)
	case "search":
		err = view.SetQuery(rest)
	case "post":
		parts := strings.SplitN(rest, "|", 3)
		if len(parts) != 3 {
			err = fmt.Errorf("usage: post <category>|<title>|<content>")
			break
		}
		err = view.Create(dto.CreatePostDTO{
			Category: strings.TrimSpace(parts[0]),
			Title:    strings.TrimSpace(parts[1]),
			Content:  strings.TrimSpace(parts[2]),
		})
	case "like":
		var id uint64
		if id, err = parseID(rest); err == nil {
			err = view.ToggleLike(id)
		}
	case "comment":
		idRaw, text, _ := strings.Cut(rest, " ")
		var id uint64
		if id, err = parseID(idRaw); err == nil {
			err = view.AddComment(id, text)
		}
	case "delete":
		var id uint64
		if id, err = parseID(rest); err == nil {
			err = view.DeletePost(id)
		}
	case "uncomment":
		postRaw, commentRaw, _ := strings.Cut(rest, " ")
		var postID, commentID uint64
		if postID, err = parseID(postRaw); err == nil {
			if commentID, err = parseID(commentRaw); err == nil {
				err = view.DeleteComment(postID, commentID)
			}
		}
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		fmt.Println("error:", err)
		return false
	}
	if flushErr := view.Flush(); flushErr != nil {
		log.Warn("flush failed", "err", flushErr)
	}
	printPosts(view.Visible())
	return false
}

func parseID(raw string) (uint64, error) {
	var id uint64
	if _, err := fmt.Sscan(strings.TrimSpace(raw), &id); err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// printToast 只在提示出现时打印一次
func printToast() func(community.State) {
	var last uint64
	return func(s community.State) {
		if s.Toast != nil && s.Toast.ID != last {
			last = s.Toast.ID
			fmt.Println("\n[!]", s.Toast.Message)
		}
	}
}

func printPosts(posts []*dto.PostDTO) {
	if len(posts) == 0 {
		fmt.Println("(no discussions)")
		return
	}
	for _, p := range posts {
		id := fmt.Sprint(p.ID)
		if community.IsTempID(p.ID) {
			id = "pending"
		}
		fmt.Printf("#%s [%s] %s by %s  likes:%d comments:%d  %s\n",
			id, p.Category, p.Title, p.Author, p.Likes, len(p.Comments), p.CreatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Printf("    %s\n", p.Content)
		for _, c := range p.Comments {
			fmt.Printf("    - (%d) %s: %s\n", c.ID, c.Author, c.Content)
		}
	}
}
