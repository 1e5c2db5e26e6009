package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/lookie/backend/internal/model/outfit"
)

// SessionHeader 携带远端会话 ID。
const SessionHeader = "X-Session-ID"

const maxErrorBody = 4096

// Client 通过 HTTP/JSON 调用远端推荐服务。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option 调整 Client 的可选行为。
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient 创建远端客户端。timeout 为 0 表示不设置超时。
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ Gateway           = (*Client)(nil)
	_ LookbookPublisher = (*Client)(nil)
)

// CreateSession 创建远端会话。
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var resp struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := c.do(ctx, "create_session", http.MethodPost, "/session/create", "", nil, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", &RemoteError{Op: "create_session", Status: http.StatusOK, Detail: "empty session id"}
	}
	return resp.SessionID, nil
}

// SetPersona 绑定人设。
func (c *Client) SetPersona(ctx context.Context, sessionID, persona string) error {
	body := map[string]string{"persona": persona}
	return c.do(ctx, "set_persona", http.MethodPost, "/session/persona", sessionID, body, nil)
}

// SubmitNegativePreferences 提交排除条件，未排除的字段以 null 发送。
func (c *Client) SubmitNegativePreferences(ctx context.Context, sessionID string, prefs outfit.NegativePreferences) error {
	body := struct {
		Fit            *string `json:"fit"`
		Pattern        *string `json:"pattern"`
		PriceThreshold int     `json:"price_threshold"`
	}{
		Fit:            optional(string(prefs.Fit)),
		Pattern:        optional(string(prefs.Pattern)),
		PriceThreshold: int(prefs.MaxPrice),
	}
	if body.PriceThreshold == 0 {
		body.PriceThreshold = int(outfit.DefaultPriceTier)
	}
	return c.do(ctx, "submit_negatives", http.MethodPost, "/session/negatives", sessionID, body, nil)
}

// SubmitTPO 提交自由文本 TPO，返回精炼后的 TPO。
func (c *Client) SubmitTPO(ctx context.Context, sessionID, rawTPO, persona string) (TPOResult, error) {
	body := map[string]string{"tpo": rawTPO, "persona": persona}
	var resp struct {
		ParsedTPO  []string `json:"parsed_tpo"`
		Conflict   bool     `json:"conflict"`
		RefinedTPO string   `json:"refined_tpo"`
	}
	if err := c.do(ctx, "submit_tpo", http.MethodPost, "/session/tpo", sessionID, body, &resp); err != nil {
		return TPOResult{}, err
	}
	return TPOResult{Parsed: resp.ParsedTPO, Conflict: resp.Conflict, Refined: resp.RefinedTPO}, nil
}

type wireCandidate struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Brand       string  `json:"brand"`
	Price       string  `json:"price"`
	ItemURL     string  `json:"item_url"`
	ImgURL      string  `json:"img_url"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	SubCatName  string  `json:"sub_cat_name"`
	Color       string  `json:"color"`
	Fit         string  `json:"fit"`
	Pattern     string  `json:"pattern"`
	Texture     string  `json:"texture"`
	Description string  `json:"description"`
}

func (w wireCandidate) toModel() outfit.Candidate {
	return outfit.Candidate{
		ProductID:   w.ProductID,
		Name:        w.ProductName,
		Brand:       w.Brand,
		Price:       w.Price,
		ImageURL:    w.ImgURL,
		DetailURL:   w.ItemURL,
		Score:       w.Score,
		Reason:      w.Reason,
		SubCategory: w.SubCatName,
		Color:       w.Color,
		Fit:         w.Fit,
		Pattern:     w.Pattern,
		Texture:     w.Texture,
		Description: w.Description,
	}
}

// FetchNextCandidates 拉取当前品类的一轮候选。
func (c *Client) FetchNextCandidates(ctx context.Context, sessionID string) (Recommendation, error) {
	var resp struct {
		Category               string          `json:"category"`
		CategoryIndex          int             `json:"category_index"`
		TotalCategories        int             `json:"total_categories"`
		Candidates             []wireCandidate `json:"candidates"`
		IsLastCategory         bool            `json:"is_last_category"`
		IsRestoredFromPrevious bool            `json:"is_restored_from_previous"`
	}
	if err := c.do(ctx, "fetch_candidates", http.MethodPost, "/recommend/next", sessionID, nil, &resp); err != nil {
		return Recommendation{}, err
	}

	candidates := make([]outfit.Candidate, 0, len(resp.Candidates))
	for _, w := range resp.Candidates {
		candidates = append(candidates, w.toModel())
	}

	return Recommendation{
		Category:             resp.Category,
		CategoryIndex:        resp.CategoryIndex,
		TotalCategories:      resp.TotalCategories,
		Candidates:           candidates,
		IsLastCategory:       resp.IsLastCategory,
		RestoredFromPrevious: resp.IsRestoredFromPrevious,
	}, nil
}

// SubmitFeedback 提交硬约束反馈。
func (c *Client) SubmitFeedback(ctx context.Context, sessionID string, feedback outfit.Feedback) error {
	body := struct {
		Type  string   `json:"type"`
		Value []string `json:"value"`
	}{Type: string(feedback.Type), Value: feedback.Values}
	if body.Value == nil {
		body.Value = []string{}
	}
	return c.do(ctx, "submit_feedback", http.MethodPost, "/feedback", sessionID, body, nil)
}

// SelectItem 选择商品并推进品类。
func (c *Client) SelectItem(ctx context.Context, sessionID, productID string) (Selection, error) {
	body := map[string]string{"product_id": productID}
	var resp struct {
		Status       string  `json:"status"`
		Category     string  `json:"category"`
		NextCategory *string `json:"next_category"`
		IsComplete   bool    `json:"is_complete"`
	}
	if err := c.do(ctx, "select_item", http.MethodPost, "/select", sessionID, body, &resp); err != nil {
		return Selection{}, err
	}

	sel := Selection{Category: resp.Category, IsComplete: resp.IsComplete}
	if resp.NextCategory != nil && !resp.IsComplete {
		sel.NextCategory = *resp.NextCategory
	}
	return sel, nil
}

type wireSelectedItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	MainCatName string `json:"main_cat_name"`
	SubCatName  string `json:"sub_cat_name"`
	Brand       string `json:"brand"`
	Price       string `json:"price"`
	ItemURL     string `json:"item_url"`
	ImgURL      string `json:"img_url"`
	Color       string `json:"color"`
	Fit         string `json:"fit"`
	Pattern     string `json:"pattern"`
	Texture     string `json:"texture"`
	Description string `json:"description"`
}

// FetchFinalOutfit 拉取全部品类的最终选择，按品类顺序返回。
func (c *Client) FetchFinalOutfit(ctx context.Context, sessionID string) (outfit.FinalOutfit, error) {
	var resp struct {
		TPO           string                      `json:"tpo"`
		SelectedItems map[string]wireSelectedItem `json:"selected_items"`
		TotalCount    int                         `json:"total_count"`
	}
	if err := c.do(ctx, "fetch_final_outfit", http.MethodGet, "/show_all", sessionID, nil, &resp); err != nil {
		return outfit.FinalOutfit{}, err
	}

	labels := make([]string, 0, len(resp.SelectedItems))
	for category := range resp.SelectedItems {
		labels = append(labels, category)
	}

	items := make([]outfit.SelectedItem, 0, len(labels))
	for _, category := range outfit.SortCategories(labels) {
		w := resp.SelectedItems[category]
		if w.MainCatName == "" {
			w.MainCatName = category
		}
		items = append(items, outfit.SelectedItem{
			ProductID:   w.ProductID,
			Name:        w.ProductName,
			Category:    w.MainCatName,
			SubCategory: w.SubCatName,
			Brand:       w.Brand,
			Price:       w.Price,
			ImageURL:    w.ImgURL,
			DetailURL:   w.ItemURL,
			Color:       w.Color,
			Fit:         w.Fit,
			Pattern:     w.Pattern,
			Texture:     w.Texture,
			Description: w.Description,
		})
	}

	return outfit.FinalOutfit{TPO: resp.TPO, TotalCount: resp.TotalCount, Items: items}, nil
}

// DeleteSession 删除远端会话。
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, "delete_session", http.MethodDelete, "/session/delete", sessionID, nil, nil)
}

// GenerateLookbook 发布最终穿搭，返回 lookbook 地址。此接口不需要会话 ID。
func (c *Client) GenerateLookbook(ctx context.Context, look outfit.FinalOutfit, persona string) (outfit.Lookbook, error) {
	selected := make(map[string]wireSelectedItem, len(look.Items))
	for _, item := range look.Items {
		selected[item.Category] = wireSelectedItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			MainCatName: item.Category,
			SubCatName:  item.SubCategory,
			Brand:       item.Brand,
			Price:       item.Price,
			ItemURL:     item.DetailURL,
			ImgURL:      item.ImageURL,
			Color:       item.Color,
			Fit:         item.Fit,
			Pattern:     item.Pattern,
			Texture:     item.Texture,
			Description: item.Description,
		}
	}

	body := map[string]any{
		"outfit_data": map[string]any{
			"tpo":            look.TPO,
			"selected_items": selected,
			"total_count":    look.TotalCount,
		},
		"persona": persona,
	}

	var resp struct {
		QRCodeURL   string `json:"qr_code_url"`
		LookbookURL string `json:"lookbook_url"`
		OutfitID    string `json:"outfit_id"`
		ExpiresAt   string `json:"expires_at"`
	}
	if err := c.do(ctx, "generate_lookbook", http.MethodPost, "/generate_qr", "", body, &resp); err != nil {
		return outfit.Lookbook{}, err
	}

	return outfit.Lookbook{
		OutfitID:    resp.OutfitID,
		LookbookURL: resp.LookbookURL,
		QRCodeURL:   resp.QRCodeURL,
		ExpiresAt:   parseTimestamp(resp.ExpiresAt),
	}, nil
}

func (c *Client) do(ctx context.Context, op, method, path, sessionID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("gateway %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway call failed",
			zap.String("op", op),
			zap.String("session", shortID(sessionID)),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return &ConnectionError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		remoteErr := &RemoteError{Op: op, Status: resp.StatusCode, Detail: extractDetail(data, resp.Status)}
		c.logger.Warn("gateway returned error",
			zap.String("op", op),
			zap.String("session", shortID(sessionID)),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", remoteErr.Detail))
		return remoteErr
	}

	c.logger.Debug("gateway call",
		zap.String("op", op),
		zap.String("session", shortID(sessionID)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &RemoteError{Op: op, Status: resp.StatusCode, Detail: "empty response body"}
		}
		return &RemoteError{Op: op, Status: resp.StatusCode, Detail: fmt.Sprintf("invalid response body: %v", err)}
	}
	return nil
}

// extractDetail 解析 {"detail": ...}；detail 可能是字符串，也可能是校验错误列表。
func extractDetail(data []byte, status string) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Detail) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Detail, &text); err == nil {
			return text
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		return string(envelope.Detail)
	}

	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return status
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
