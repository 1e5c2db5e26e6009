package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
	"github.com/zhouzirui/lookie/backend/internal/model/persona"
	"github.com/zhouzirui/lookie/backend/internal/service/chat"
	"github.com/zhouzirui/lookie/backend/internal/service/conversation"
	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
)

var personaID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive styling conversation",
	Long: `Starts a conversation with the chosen persona.

Commands inside the conversation:
  /select <n|productId>  pick the n-th candidate shown (or a product id)
  /show                  print the current candidates again
  /exit                  end the conversation`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&personaID, "persona", "p", "pme", "stylist persona id")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := gateway.NewClient(gatewayURL, gatewayTimeout, gateway.WithLogger(logger.Named("gateway")))
	svc := chat.NewService(client, persona.NewMemoryStore(persona.Seed()),
		chat.WithLogger(logger.Named("session")),
		chat.WithLookbookPublisher(client))

	return runConversation(ctx, svc, personaID, cmd.InOrStdin(), cmd.OutOrStdout())
}

// terminal 负责把一次会话渲染到终端。
type terminal struct {
	svc       *chat.Service
	sessionID string
	speaker   string
	out       io.Writer
	published bool
}

// runConversation 逐行读取输入直到 /exit、EOF 或 ctx 取消，结束时等待远端会话删除。
func runConversation(ctx context.Context, svc *chat.Service, personaID string, in io.Reader, out io.Writer) error {
	p, ok := persona.NewMemoryStore(persona.Seed()).FindByID(personaID)
	if !ok {
		return fmt.Errorf("unknown persona %q, run `lookie personas` to list them", personaID)
	}

	session, turn, err := svc.CreateSession(ctx, personaID)
	if err != nil {
		t := &terminal{speaker: p.Name, out: out}
		t.render(turn)
		return err
	}

	t := &terminal{svc: svc, sessionID: session.ID, speaker: p.Name, out: out}
	defer t.close()
	t.render(turn)

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "\n> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		stop, err := t.dispatch(ctx, line)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// dispatch 处理一行输入，返回 true 表示对话结束。
func (t *terminal) dispatch(ctx context.Context, line string) (bool, error) {
	var (
		turn conversation.Turn
		err  error
	)
	switch {
	case line == "/exit" || line == "/quit":
		return true, nil
	case line == "/show":
		t.showCurrent()
		return false, nil
	case strings.HasPrefix(line, "/select"):
		arg := strings.TrimSpace(strings.TrimPrefix(line, "/select"))
		productID, ok := t.resolveProduct(arg)
		if !ok {
			fmt.Fprintln(t.out, "선택할 상품 번호나 ID를 입력해주세요. 예: /select 1")
			return false, nil
		}
		turn, err = t.svc.Select(ctx, t.sessionID, productID)
	default:
		turn, err = t.svc.Send(ctx, t.sessionID, line)
	}

	t.render(turn)
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrHalted), errors.Is(err, conversation.ErrExited):
		return true, nil
	case errors.Is(err, conversation.ErrBusy):
		zap.L().Debug("input dropped while busy")
	default:
		zap.L().Debug("turn failed", zap.Error(err))
	}

	if turn.State == conversation.StateComplete && !t.published {
		t.publish(ctx)
	}
	return false, nil
}

// resolveProduct 支持按展示序号（从 1 开始）或直接按商品 ID 选择。
func (t *terminal) resolveProduct(arg string) (string, bool) {
	if arg == "" {
		return "", false
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, true
	}
	snap, err := t.svc.Snapshot(t.sessionID)
	if err != nil || n < 1 || n > len(snap.Candidates) {
		return "", false
	}
	return snap.Candidates[n-1].ProductID, true
}

func (t *terminal) showCurrent() {
	snap, err := t.svc.Snapshot(t.sessionID)
	if err != nil || len(snap.Candidates) == 0 {
		fmt.Fprintln(t.out, "표시할 후보가 없어요.")
		return
	}
	t.printCandidates(snap.Cursor.Category, snap.Candidates)
}

func (t *terminal) render(turn conversation.Turn) {
	for _, r := range turn.Replies {
		switch r.Kind {
		case conversation.ReplyCandidates:
			t.printCandidates(r.Category, r.Candidates)
		case conversation.ReplyOutfit:
			if r.Outfit != nil {
				t.printOutfit(*r.Outfit)
			}
		case conversation.ReplyWarning:
			fmt.Fprintf(t.out, "⚠️  %s\n", r.Text)
		case conversation.ReplyError:
			fmt.Fprintf(t.out, "❌ %s\n", r.Text)
		default:
			fmt.Fprintf(t.out, "[%s] %s\n", t.speaker, r.Text)
		}
	}
}

func (t *terminal) printCandidates(category string, items []outfit.Candidate) {
	fmt.Fprintf(t.out, "\n── %s 추천 ──\n", category)
	for i, c := range items {
		tag := ""
		switch c.Provenance {
		case outfit.ProvenanceNew:
			tag = " (new)"
		case outfit.ProvenancePrevious:
			tag = " (previous)"
		}
		fmt.Fprintf(t.out, "  %d. %s %s · %s원%s [%s]\n", i+1, c.Brand, c.Name, c.Price, tag, c.ProductID)
		if c.Reason != "" {
			fmt.Fprintf(t.out, "     %s\n", c.Reason)
		}
	}
	fmt.Fprintln(t.out, "마음에 드는 상품은 /select <번호>, 아니면 피드백을 입력해주세요.")
}

func (t *terminal) printOutfit(look outfit.FinalOutfit) {
	fmt.Fprintf(t.out, "\n══ 최종 코디 (%s) ══\n", look.TPO)
	for _, item := range look.Items {
		fmt.Fprintf(t.out, "  • %s: %s %s · %s원\n", item.Category, item.Brand, item.Name, item.Price)
	}
}

// publish 生成 lookbook 并在终端打印二维码，失败只记录日志。
func (t *terminal) publish(ctx context.Context) {
	look, err := t.svc.Lookbook(ctx, t.sessionID)
	if err != nil {
		if !errors.Is(err, chat.ErrOutfitNotReady) {
			t.published = true
		}
		zap.L().Warn("lookbook unavailable", zap.Error(err))
		return
	}
	t.published = true

	fmt.Fprintf(t.out, "\n📱 Lookbook: %s\n", look.LookbookURL)
	qrterminal.GenerateHalfBlock(look.LookbookURL, qrterminal.L, t.out)
	fmt.Fprintln(t.out, "대화를 끝내려면 /exit 를 입력하세요.")
}

func (t *terminal) close() {
	done, err := t.svc.Close(t.sessionID)
	if err != nil {
		return
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		zap.L().Warn("remote session cleanup timed out", zap.String("session", t.sessionID))
	}
	fmt.Fprintln(t.out, "👋 대화를 종료했어요.")
}
