package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
)

const (
	// Gmail API max page size for message listing
	maxPageSize = 100

	// Secret store coordinates for the OAuth token, provisioned out-of-band
	secretAgent   = "email"
	secretService = "gmail"
)

// Client implements the mail transport against the Gmail REST API
type Client struct {
	svc    *gmail.Service
	logger *zap.Logger

	mu         sync.Mutex
	labelCache map[string]string
}

// NewClient creates a Gmail client authenticated with the OAuth token
// held in the secret store
func NewClient(ctx context.Context, cfg config.GmailConfig, secrets core.SecretStore, logger *zap.Logger) (*Client, error) {
	raw, err := secrets.GetSecret(ctx, secretAgent, secretService)
	if err != nil {
		return nil, fmt.Errorf("failed to load gmail token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse gmail token: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gmail.GmailModifyScope}
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}

	httpClient := oauth2.NewClient(ctx, conf.TokenSource(ctx, &tok))
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	logger.Info("gmail client initialized",
		zap.Strings("scopes", scopes))

	return &Client{
		svc:    svc,
		logger: logger,
	}, nil
}

// FetchCandidates returns messages from a folder matching the filters.
// It lists message ids with pagination, then retrieves each message in
// full format. Messages that fail to load are skipped.
func (c *Client) FetchCandidates(ctx context.Context, folder string, limit int, filters core.FetchFilters) ([]*core.Message, error) {
	query := buildQuery(folder, filters)
	maxResults := int64(limit)
	if maxResults <= 0 {
		maxResults = maxPageSize
	}

	c.logger.Debug("listing messages",
		zap.String("folder", folder),
		zap.String("query", query),
		zap.Int64("max_results", maxResults))

	var ids []string
	pageToken := ""
	for {
		remaining := maxResults - int64(len(ids))
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		call := c.svc.Users.Messages.List("me").Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" || int64(len(ids)) >= maxResults {
			break
		}
		pageToken = res.NextPageToken
	}
	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}

	messages := make([]*core.Message, 0, len(ids))
	for _, id := range ids {
		full, err := c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		if err != nil {
			c.logger.Warn("failed to retrieve message",
				zap.String("message_id", id),
				zap.Error(err))
			continue
		}
		messages = append(messages, parseMessage(full, folder))
	}

	c.logger.Info("fetched messages",
		zap.String("folder", folder),
		zap.Int("count", len(messages)))

	return messages, nil
}

// PerformAction applies mailbox mutations to a message. Trash is
// terminal and short-circuits the remaining operations. Label adds and
// read/archive flag changes are combined into a single modify call.
func (c *Client) PerformAction(ctx context.Context, messageID string, ops core.MailOps) error {
	if ops.Trash {
		if _, err := c.svc.Users.Messages.Trash("me", messageID).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to trash message %s: %w", messageID, err)
		}
		c.logger.Debug("message trashed", zap.String("message_id", messageID))
		return nil
	}

	req := &gmail.ModifyMessageRequest{}
	for _, name := range ops.AddLabels {
		id, err := c.labelID(ctx, name)
		if err != nil {
			return err
		}
		req.AddLabelIds = append(req.AddLabelIds, id)
	}
	if ops.MarkRead {
		req.RemoveLabelIds = append(req.RemoveLabelIds, "UNREAD")
	}
	if ops.Archive {
		req.RemoveLabelIds = append(req.RemoveLabelIds, "INBOX")
	}
	if len(req.AddLabelIds) == 0 && len(req.RemoveLabelIds) == 0 {
		return nil
	}

	if _, err := c.svc.Users.Messages.Modify("me", messageID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to modify message %s: %w", messageID, err)
	}
	c.logger.Debug("message modified",
		zap.String("message_id", messageID),
		zap.Strings("added", req.AddLabelIds),
		zap.Strings("removed", req.RemoveLabelIds))
	return nil
}

// ListFolders returns the label names visible in the mailbox
func (c *Client) ListFolders(ctx context.Context) ([]string, error) {
	res, err := c.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	folders := make([]string, 0, len(res.Labels))
	for _, l := range res.Labels {
		folders = append(folders, l.Name)
	}
	return folders, nil
}

// labelID resolves a label name to its id, creating the label when it
// does not exist yet. Resolved ids are cached for the client lifetime.
func (c *Client) labelID(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.labelCache == nil {
		res, err := c.svc.Users.Labels.List("me").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to list labels: %w", err)
		}
		c.labelCache = make(map[string]string, len(res.Labels))
		for _, l := range res.Labels {
			c.labelCache[l.Name] = l.Id
		}
	}

	if id, ok := c.labelCache[name]; ok {
		return id, nil
	}

	created, err := c.svc.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create label %q: %w", name, err)
	}

	c.logger.Info("created label",
		zap.String("name", name),
		zap.String("label_id", created.Id))

	c.labelCache[name] = created.Id
	return created.Id, nil
}

// buildQuery assembles a Gmail search query from the folder and filters.
// System folders use the in: operator, user labels the label: operator
// with spaces folded to dashes the way Gmail search expects.
func buildQuery(folder string, filters core.FetchFilters) string {
	parts := make([]string, 0, 5)
	if folder != "" {
		switch strings.ToUpper(folder) {
		case "INBOX", "TRASH", "SPAM", "SENT", "DRAFT":
			parts = append(parts, "in:"+strings.ToLower(folder))
		default:
			parts = append(parts, "label:"+strings.ReplaceAll(folder, " ", "-"))
		}
	}
	if filters.UnreadOnly {
		parts = append(parts, "is:unread")
	}
	if filters.SinceDays > 0 {
		parts = append(parts, fmt.Sprintf("newer_than:%dd", filters.SinceDays))
	}
	if !filters.After.IsZero() {
		parts = append(parts, "after:"+filters.After.Format("2006/01/02"))
	}
	if !filters.Before.IsZero() {
		parts = append(parts, "before:"+filters.Before.Format("2006/01/02"))
	}
	return strings.Join(parts, " ")
}
