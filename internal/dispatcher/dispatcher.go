// Package dispatcher routes classified chat commands to the resolver, the
// mutation engine and the completion service, and posts the resulting chat
// entries.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jwebster45206/table-assist/internal/services"
	"github.com/jwebster45206/table-assist/pkg/actor"
	"github.com/jwebster45206/table-assist/pkg/actorview"
	"github.com/jwebster45206/table-assist/pkg/chat"
	"github.com/jwebster45206/table-assist/pkg/cmderr"
	"github.com/jwebster45206/table-assist/pkg/command"
	"github.com/jwebster45206/table-assist/pkg/fuzzy"
	"github.com/jwebster45206/table-assist/pkg/mutation"
	"github.com/jwebster45206/table-assist/pkg/prompts"
	"github.com/jwebster45206/table-assist/pkg/storage"
)

// ChatSink receives entries destined for the shared chat log.
type ChatSink interface {
	Post(ctx context.Context, e chat.Entry) error
}

// Options carries the per-deployment settings the dispatcher needs.
type Options struct {
	// WorldSystem selects the actor data view.
	WorldSystem string
	// PromptSystem selects the system preamble. Empty falls back to WorldSystem.
	PromptSystem string
	CustomPrompt string
	// ContextLength is the number of history messages sent with each query.
	// Zero disables history.
	ContextLength int
}

// Dispatcher handles one chat line per call. It holds no per-request state
// and is safe for concurrent use.
type Dispatcher struct {
	store    storage.Storage
	resolver *actor.Resolver
	view     actorview.View
	matcher  *fuzzy.Matcher
	engine   *mutation.Engine
	llm      services.LLMService
	sink     ChatSink
	opts     Options
	logger   *slog.Logger
}

// New wires a dispatcher. The matcher carries the process-wide recent item
// context and is shared with the mutation engine.
func New(store storage.Storage, llm services.LLMService, sink ChatSink, matcher *fuzzy.Matcher, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.PromptSystem == "" {
		opts.PromptSystem = opts.WorldSystem
	}
	view := actorview.For(opts.WorldSystem)
	return &Dispatcher{
		store:    store,
		resolver: actor.NewResolver(store, store, logger),
		view:     view,
		matcher:  matcher,
		engine:   mutation.NewEngine(store, matcher, view, logger),
		llm:      llm,
		sink:     sink,
		opts:     opts,
		logger:   logger,
	}
}

// Handle classifies line and executes it for userID. Lines that are not
// commands come back with Intercepted false and nothing posted. Resolution
// failures, write verification failures and completion failures are
// reported as notices; other errors are returned.
func (d *Dispatcher) Handle(ctx context.Context, userID, line string) (chat.ChatResponse, error) {
	intent, ok := command.Classify(line)
	if !ok {
		return chat.ChatResponse{}, nil
	}
	resp := chat.ChatResponse{Intercepted: true, Intent: string(intent.Kind())}

	user, err := d.user(ctx, userID)
	if err != nil {
		return resp, err
	}

	d.logger.Info("Dispatching command", "user_id", userID, "intent", intent.Kind())

	var notice string
	switch in := intent.(type) {
	case command.WhisperQuery:
		err = d.whisper(ctx, user, in)
	case command.GeneralQuery:
		err = d.general(ctx, user, in)
	case command.InventoryQuery:
		err = d.inventoryQuery(ctx, user, in)
	case command.SkillQuery:
		err = d.skillQuery(ctx, user, in)
	case command.InventoryMutation:
		notice, err = d.inventoryMutation(ctx, user, in)
	case command.EquipToggle:
		notice, err = d.equip(ctx, user, in)
	case command.GiftTransfer:
		notice, err = d.transfer(ctx, user, in)
	case command.SkillMutation:
		notice, err = d.skillMutation(ctx, user, in)
	default:
		return resp, fmt.Errorf("unhandled intent %s", intent.Kind())
	}

	if err != nil {
		kind, typed := cmderr.KindOf(err)
		if !typed {
			return resp, err
		}
		switch kind {
		case cmderr.WriteVerification, cmderr.RemoteService:
			d.logger.Error("Command failed", "user_id", userID, "intent", intent.Kind(), "error", err)
		default:
			d.logger.Info("Command rejected", "user_id", userID, "intent", intent.Kind(), "kind", kind, "reason", cmderr.UserMessage(err))
		}
		resp.Notices = append(resp.Notices, chat.Notice{Level: chat.NoticeError, Message: cmderr.UserMessage(err)})
		return resp, nil
	}
	if notice != "" {
		resp.Notices = append(resp.Notices, chat.Notice{Level: chat.NoticeInfo, Message: notice})
	}
	return resp, nil
}

// Say posts a line that is not a command as a normal public entry.
func (d *Dispatcher) Say(ctx context.Context, userID, line string) error {
	user, err := d.user(ctx, userID)
	if err != nil {
		return err
	}
	return d.sink.Post(ctx, chat.Entry{
		Speaker: user.Name,
		UserID:  user.ID,
		Content: line,
	})
}

func (d *Dispatcher) user(ctx context.Context, userID string) (*actor.User, error) {
	user, err := d.store.User(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, cmderr.New(cmderr.NotFound, fmt.Sprintf("Unknown user %s", userID))
	}
	return user, nil
}

// audience is the set of users an exchange is visible to. A nil audience
// means public.
type audience []string

func (d *Dispatcher) whisper(ctx context.Context, user *actor.User, in command.WhisperQuery) error {
	if err := requireQuestion(in.Question); err != nil {
		return err
	}

	recipients := []actor.User{*user}
	for _, alias := range in.Targets {
		users, err := d.resolver.WhisperRecipients(ctx, alias, user.ID)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return cmderr.New(cmderr.NotFound, fmt.Sprintf("No target users for whisper: %s", alias))
		}
		recipients = append(recipients, users...)
	}

	var to audience
	seen := make(map[string]bool, len(recipients))
	for _, u := range recipients {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		if !u.IsGM && u.ID != user.ID && user.CannotWhisper {
			return cmderr.New(cmderr.PermissionDenied, "You are not allowed to whisper to other players")
		}
		to = append(to, u.ID)
	}

	if err := d.echo(ctx, user, in.Question, to); err != nil {
		return err
	}
	return d.ask(ctx, user, prompts.New().WithQuery(in.Question), to)
}

func (d *Dispatcher) general(ctx context.Context, user *actor.User, in command.GeneralQuery) error {
	if err := requireQuestion(in.Question); err != nil {
		return err
	}
	if err := d.echo(ctx, user, in.Question, nil); err != nil {
		return err
	}
	return d.ask(ctx, user, prompts.New().WithQuery(in.Question), nil)
}

func (d *Dispatcher) inventoryQuery(ctx context.Context, user *actor.User, in command.InventoryQuery) error {
	question := strings.TrimSpace(in.Text)
	if question == "" {
		question = "What is in my inventory?"
	}
	if err := d.echo(ctx, user, question, nil); err != nil {
		return err
	}

	a, err := d.activeActor(ctx, user)
	if err != nil {
		return err
	}

	var items []actorview.ItemCount
	if strings.TrimSpace(in.Text) != "" {
		items = d.matcher.SearchItems(a, in.Text)
	}
	if len(items) == 0 {
		for _, it := range d.view.Items(a) {
			items = append(items, actorview.ItemCount{Name: it.Name, Quantity: it.Quantity})
		}
	}
	// Whatever the prompt lists becomes the recent context, full inventory included.
	d.matcher.Remember(items)

	b := prompts.New().
		WithInstructions(prompts.InventoryInstructions).
		WithContext(prompts.ActorContextHeader, actorview.Summarize(d.view, a)).
		WithContext(prompts.InventoryContextHeader, actorview.SummarizeItems(items)).
		WithQuery(question)
	return d.ask(ctx, user, b, nil)
}

func (d *Dispatcher) skillQuery(ctx context.Context, user *actor.User, in command.SkillQuery) error {
	question := strings.TrimSpace(in.Text)
	if question == "" {
		question = "What are my skills?"
	}
	a, err := d.activeActor(ctx, user)
	if err != nil {
		return err
	}

	skills := d.view.Skills(a)
	b := prompts.New().
		WithInstructions(prompts.SkillInstructions).
		WithContext(prompts.ActorContextHeader, actorview.Summarize(d.view, a)).
		WithContext(prompts.SkillContextHeader, actorview.SummarizeSkills(skills))
	if key := mentionedSkill(question, skills); key != "" {
		b.WithContext(prompts.BreakdownContextHeader, actorview.SummarizeBreakdown(d.view.SkillBreakdown(a, key)))
	}
	return d.ask(ctx, user, b.WithQuery(question), nil)
}

func (d *Dispatcher) inventoryMutation(ctx context.Context, user *actor.User, in command.InventoryMutation) (string, error) {
	a, err := d.resolver.ResolveActiveActor(ctx, user.ID)
	if err != nil {
		return "", err
	}
	var res *mutation.Result
	switch in.Op {
	case command.OpSet:
		res, err = d.engine.SetQuantity(ctx, user.ID, a, in.ItemName, in.Amount)
	default:
		res, err = d.engine.ModifyInventory(ctx, user.ID, a, in.ItemName, in.Amount)
	}
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (d *Dispatcher) equip(ctx context.Context, user *actor.User, in command.EquipToggle) (string, error) {
	a, err := d.resolver.ResolveActiveActor(ctx, user.ID)
	if err != nil {
		return "", err
	}
	res, err := d.engine.SetEquipped(ctx, user.ID, a, in.ItemName, in.On)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (d *Dispatcher) transfer(ctx context.Context, user *actor.User, in command.GiftTransfer) (string, error) {
	a, err := d.resolver.ResolveActiveActor(ctx, user.ID)
	if err != nil {
		return "", err
	}
	res, err := d.engine.TransferItem(ctx, user.ID, a, in.TargetName, in.ItemName, in.Amount)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (d *Dispatcher) skillMutation(ctx context.Context, user *actor.User, in command.SkillMutation) (string, error) {
	a, err := d.resolver.ResolveActiveActor(ctx, user.ID)
	if err != nil {
		return "", err
	}
	var res *mutation.Result
	switch in.Op {
	case command.SkillSet:
		res, err = d.engine.SetSkillRanks(ctx, user.ID, a, in.SkillName, in.Amount)
	case command.SkillDecrease:
		res, err = d.engine.ModifySkillRanks(ctx, user.ID, a, in.SkillName, -in.Amount)
	default:
		res, err = d.engine.ModifySkillRanks(ctx, user.ID, a, in.SkillName, in.Amount)
	}
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (d *Dispatcher) activeActor(ctx context.Context, user *actor.User) (*actor.Actor, error) {
	a, err := d.resolver.ResolveActiveActor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, cmderr.New(cmderr.NotFound, "No character is available for you")
	}
	return a, nil
}

func (d *Dispatcher) echo(ctx context.Context, user *actor.User, question string, to audience) error {
	err := d.sink.Post(ctx, chat.Entry{
		Speaker:   user.Name,
		UserID:    user.ID,
		VisibleTo: to,
		Whisper:   to != nil,
		Content:   chat.FormatEcho(question),
	})
	if err != nil {
		return fmt.Errorf("failed to post echo: %w", err)
	}
	return nil
}

// ask completes the prompt and posts the reply. The user's history window
// is loaded before and extended after a successful completion.
func (d *Dispatcher) ask(ctx context.Context, user *actor.User, b *prompts.Builder, to audience) error {
	b.WithGameSystem(d.opts.PromptSystem, d.opts.CustomPrompt)
	if d.opts.ContextLength > 0 {
		history, err := d.store.LoadHistory(ctx, user.ID, d.opts.ContextLength)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		b.WithHistory(history).WithHistoryLimit(d.opts.ContextLength)
	}
	p, err := b.Build()
	if err != nil {
		return fmt.Errorf("failed to build prompt: %w", err)
	}

	reply, err := d.llm.Complete(ctx, p.History, p.System, p.Query)
	if err != nil {
		return err
	}

	if d.opts.ContextLength > 0 {
		err := d.store.AppendHistory(ctx, user.ID,
			chat.ChatMessage{Role: chat.ChatRoleUser, Content: p.Query},
			chat.ChatMessage{Role: chat.ChatRoleAgent, Content: reply},
		)
		if err != nil {
			d.logger.Warn("Failed to append history", "user_id", user.ID, "error", err)
		}
	}

	err = d.sink.Post(ctx, chat.Entry{
		Speaker:   chat.ReplySpeaker,
		UserID:    user.ID,
		VisibleTo: to,
		Whisper:   to != nil,
		Content:   chat.FormatReply(reply),
	})
	if err != nil {
		return fmt.Errorf("failed to post reply: %w", err)
	}
	return nil
}

func requireQuestion(q string) error {
	if strings.TrimSpace(q) == "" {
		return cmderr.New(cmderr.InvalidState, "Please include a question")
	}
	return nil
}

// mentionedSkill returns the key of the skill whose name or key appears in
// text. Longer names win so "Knowledge (arcana)" beats "Knowledge".
func mentionedSkill(text string, skills map[string]actorview.Skill) string {
	lower := " " + strings.ToLower(text) + " "
	keys := make([]string, 0, len(skills))
	for k := range skills {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestLen := "", 0
	for _, k := range keys {
		for _, name := range []string{strings.ToLower(actorview.SkillName(k)), k} {
			needle := name
			if name == k {
				needle = " " + k + " "
			}
			if len(name) > bestLen && strings.Contains(lower, needle) {
				best, bestLen = k, len(name)
			}
		}
	}
	return best
}
