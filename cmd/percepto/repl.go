package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/AhmeddEmad7/PerceptoAI/internal/api"
	"github.com/AhmeddEmad7/PerceptoAI/internal/cache"
	"github.com/AhmeddEmad7/PerceptoAI/internal/capture"
	"github.com/AhmeddEmad7/PerceptoAI/internal/chat"
	"github.com/AhmeddEmad7/PerceptoAI/internal/turn"
)

// repl is the interactive terminal front end. One conversation is active
// at a time; pressing Enter toggles recording, slash commands navigate.
type repl struct {
	controller *turn.Controller
	client     *api.Client
	cache      *cache.Store
	logger     *slog.Logger

	activeConversation string
	newConversation    bool
	placeholder        *chat.Conversation
	voice              string

	// outcomes delivers finished turns back onto the loop goroutine,
	// which owns all repl state.
	outcomes chan turnOutcome

	promptColor    func(a ...interface{}) string
	userColor      func(a ...interface{}) string
	assistantColor func(a ...interface{}) string
	errorColor     func(a ...interface{}) string
	infoColor      func(a ...interface{}) string
}

// turnOutcome is one completed or failed turn submission.
type turnOutcome struct {
	result          *turn.Result
	err             error
	newConversation bool
}

func newREPL(controller *turn.Controller, client *api.Client, store *cache.Store, defaultVoice string, logger *slog.Logger) *repl {
	return &repl{
		controller:      controller,
		client:          client,
		cache:           store,
		logger:          logger,
		newConversation: true,
		voice:           defaultVoice,
		outcomes:        make(chan turnOutcome, 1),

		promptColor:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		userColor:      color.New(color.FgGreen).SprintFunc(),
		assistantColor: color.New(color.FgCyan).SprintFunc(),
		errorColor:     color.New(color.FgRed).SprintFunc(),
		infoColor:      color.New(color.FgYellow).SprintFunc(),
	}
}

// run drives the interactive loop until /quit, EOF or context cancel.
func (r *repl) run(ctx context.Context) {
	fmt.Println(r.promptColor("PerceptoAI Voice Chat"))
	fmt.Println("Press Enter to start recording, Enter again to send. Type /help for commands.")
	fmt.Println()

	// Pick up the server-side voice preference when available.
	if voice, err := r.client.VoicePreference(ctx); err == nil && voice != "" {
		r.voice = voice
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print(r.prompt())

		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case outcome := <-r.outcomes:
			r.finishTurn(outcome)
		case line, ok := <-lines:
			if !ok {
				fmt.Println()
				return
			}
			if !r.handle(ctx, strings.TrimSpace(line)) {
				return
			}
		}
	}
}

func (r *repl) prompt() string {
	target := "new conversation"
	if !r.newConversation {
		target = "conversation " + r.activeConversation
	}

	switch r.controller.State() {
	case turn.StateRecording:
		return r.promptColor(fmt.Sprintf("[recording -> %s] ", target))
	case turn.StateProcessing:
		return r.promptColor(fmt.Sprintf("[processing -> %s] ", target))
	default:
		return r.promptColor(fmt.Sprintf("[%s] ", target))
	}
}

// handle executes one input line; it returns false to exit the loop.
func (r *repl) handle(ctx context.Context, line string) bool {
	switch {
	case line == "":
		r.toggleRecording(ctx)
	case line == "/help":
		r.printHelp()
	case line == "/list":
		r.listConversations(ctx)
	case line == "/new":
		r.startNewConversation()
	case strings.HasPrefix(line, "/new "):
		r.createConversation(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/new ")))
	case strings.HasPrefix(line, "/open "):
		r.openConversation(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
	case line == "/voice":
		r.showVoice(ctx)
	case strings.HasPrefix(line, "/voice "):
		r.setVoice(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/voice ")))
	case line == "/refresh":
		r.refreshConversation(ctx)
	case line == "/abort":
		r.abortTurn()
	case line == "/quit" || line == "/exit":
		return false
	default:
		fmt.Println(r.errorColor("Unknown command. Type /help for the command list."))
	}
	return true
}

func (r *repl) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  <Enter>      start recording / stop and send")
	fmt.Println("  /list        list conversations")
	fmt.Println("  /new [title] start a new conversation, optionally created up front")
	fmt.Println("  /open <id>   open an existing conversation")
	fmt.Println("  /voice [v]   show or set the assistant voice")
	fmt.Println("  /refresh     refetch the open conversation from the server")
	fmt.Println("  /abort       cancel the current recording or submission")
	fmt.Println("  /quit        exit")
}

// toggleRecording maps the Enter key onto the turn lifecycle.
func (r *repl) toggleRecording(ctx context.Context) {
	switch r.controller.State() {
	case turn.StateIdle:
		if err := r.controller.StartTurn(); err != nil {
			if errors.Is(err, capture.ErrDeviceUnavailable) {
				fmt.Println(r.errorColor("Microphone unavailable: " + err.Error()))
			} else {
				fmt.Println(r.errorColor("Could not start recording: " + err.Error()))
			}
			return
		}
		fmt.Println(r.infoColor("Recording... press Enter to send."))

	case turn.StateRecording:
		// The active conversation is captured here; navigating elsewhere
		// while the turn processes does not redirect it.
		conversationID := r.activeConversation
		newConversation := r.newConversation
		voice := r.voice

		fmt.Println(r.infoColor("Sending..."))
		go func() {
			result, err := r.controller.StopTurn(ctx, conversationID, voice, newConversation)
			r.outcomes <- turnOutcome{result: result, err: err, newConversation: newConversation}
		}()

	case turn.StateProcessing:
		fmt.Println(r.infoColor("Still processing the previous turn. Use /abort to cancel it."))
	}
}

// finishTurn prints a completed submission and updates the active
// conversation. It runs on the loop goroutine.
func (r *repl) finishTurn(outcome turnOutcome) {
	if outcome.err != nil {
		if errors.Is(outcome.err, capture.ErrEmptySegment) {
			fmt.Println(r.infoColor("Nothing recorded, nothing sent."))
		} else {
			fmt.Println(r.errorColor("Turn failed: " + outcome.err.Error()))
		}
		return
	}

	result := outcome.result
	if outcome.newConversation {
		r.activeConversation = result.ConversationID
		r.newConversation = false
		r.placeholder = nil
	}

	fmt.Printf("%s %s\n", r.userColor("You:"), result.User.Content)
	fmt.Printf("%s %s\n", r.assistantColor("Assistant:"), result.Assistant.Content)
	if result.Assistant.AudioURL != "" {
		fmt.Printf("%s %s\n", r.infoColor("Audio:"), result.Assistant.AudioURL)
	}
}

func (r *repl) listConversations(ctx context.Context) {
	// Serve from the cache while it is fresh.
	summaries, fresh := r.cache.Summaries()
	if !fresh {
		fetched, err := r.client.Conversations(ctx)
		if err != nil {
			fmt.Println(r.errorColor("Could not list conversations: " + err.Error()))
			return
		}
		r.cache.SetSummaries(fetched)
		summaries = fetched
	}

	if r.placeholder != nil {
		fmt.Printf("* %s  %s (pending)\n", r.placeholder.ID, r.placeholder.Title)
	}
	if len(summaries) == 0 && r.placeholder == nil {
		fmt.Println("No conversations yet.")
		return
	}
	for _, c := range summaries {
		marker := " "
		if c.ID == r.activeConversation {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, c.ID, c.Title)
	}
}

func (r *repl) startNewConversation() {
	placeholder := chat.NewPlaceholderConversation("New Conversation")
	r.placeholder = &placeholder
	r.activeConversation = ""
	r.newConversation = true
	fmt.Println(r.infoColor("Next turn starts a new conversation."))
}

// createConversation makes the conversation server-side immediately
// instead of waiting for the first turn.
func (r *repl) createConversation(ctx context.Context, title string) {
	conv, err := r.client.CreateConversation(ctx, title)
	if err != nil {
		fmt.Println(r.errorColor("Could not create conversation: " + err.Error()))
		return
	}

	r.cache.Seed(conv.ID, nil)
	r.cache.InvalidateSummaries()
	r.activeConversation = conv.ID
	r.newConversation = false
	fmt.Println(r.infoColor(fmt.Sprintf("Created conversation %s (%s)", conv.ID, conv.Title)))
}

func (r *repl) openConversation(ctx context.Context, id string) {
	if id == "" {
		fmt.Println(r.errorColor("Usage: /open <id>"))
		return
	}

	// Cache hit serves the history without a round trip.
	messages, ok := r.cache.Read(id)
	if !ok {
		fetched, err := r.client.Messages(ctx, id)
		if err != nil {
			fmt.Println(r.errorColor("Could not open conversation: " + err.Error()))
			return
		}
		r.cache.Seed(id, fetched)
		messages = fetched
	}

	r.activeConversation = id
	r.newConversation = false

	fmt.Println(r.infoColor(fmt.Sprintf("Conversation %s (%d messages)", id, len(messages))))
	for _, m := range messages {
		r.printMessage(m)
	}
}

func (r *repl) printMessage(m chat.Message) {
	label := r.userColor("You:")
	if m.Role == chat.RoleAssistant {
		label = r.assistantColor("Assistant:")
	}
	fmt.Printf("%s %s\n", label, m.Content)
	if m.Image != "" {
		fmt.Printf("%s %s\n", r.infoColor("Image:"), m.Image)
	}
}

// refreshConversation drops the cached transcript and refetches it,
// picking up server-side changes the cache cannot see.
func (r *repl) refreshConversation(ctx context.Context) {
	if r.newConversation || r.activeConversation == "" {
		fmt.Println("No conversation open.")
		return
	}

	r.cache.Invalidate(r.activeConversation)
	r.openConversation(ctx, r.activeConversation)
}

func (r *repl) showVoice(ctx context.Context) {
	voice, err := r.client.VoicePreference(ctx)
	if err != nil {
		fmt.Println(r.errorColor("Could not fetch voice preference: " + err.Error()))
		fmt.Printf("Using local voice: %s\n", r.voice)
		return
	}
	r.voice = voice
	fmt.Printf("Voice: %s\n", voice)
}

func (r *repl) setVoice(ctx context.Context, voice string) {
	if err := r.client.SetVoicePreference(ctx, voice); err != nil {
		fmt.Println(r.errorColor("Could not set voice preference: " + err.Error()))
		return
	}
	r.voice = voice
	fmt.Printf("Voice set to %s\n", voice)
}

func (r *repl) abortTurn() {
	if err := r.controller.AbortTurn(); err != nil {
		if errors.Is(err, turn.ErrNoTurn) {
			fmt.Println("Nothing to abort.")
		} else {
			fmt.Println(r.errorColor("Abort failed: " + err.Error()))
		}
		return
	}
	fmt.Println(r.infoColor("Turn aborted."))
}
