package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"regexp"
	"time"

	"materialflow/internal/apperrors"

	"go.uber.org/zap"
)

const defaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// emailPattern is intentionally loose; the provider does the real verification.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// LineItem is one row of the itemized table in the approval email
type LineItem struct {
	Item     string
	Quantity int
}

// ApprovalEmail carries everything the approval template needs
type ApprovalEmail struct {
	RequestNo     string
	Requester     string
	ApproverEmail string
	ApproverName  string
	AccountCode   string
	AccountName   string
	Amount        string // pre-formatted display string
	RequestDate   string
	Items         []LineItem
	Note          string
}

// Config identifies the EmailJS service/template/key triple and the origin
// the approve/reject deep links point back to.
type Config struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	Origin     string
	Endpoint   string // optional override, used in tests
}

// Client sends transactional email through EmailJS. It does not retry, queue
// or confirm delivery; a send failure is surfaced to the caller with the
// provider's error text included.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// SendApprovalEmail validates the approver address, renders the template
// parameters and posts them to the provider. Validation failures return
// before any network call is made.
func (c *Client) SendApprovalEmail(ctx context.Context, email ApprovalEmail) error {
	if email.ApproverEmail == "" || !emailPattern.MatchString(email.ApproverEmail) {
		return fmt.Errorf("%w: approver email %q is not a valid address", apperrors.ErrValidation, email.ApproverEmail)
	}

	itemsTable, err := renderItemsTable(email.Items)
	if err != nil {
		return fmt.Errorf("failed to render items table: %w", err)
	}

	approverName := email.ApproverName
	if approverName == "" {
		approverName = "Approver"
	}
	note := email.Note
	if note == "" {
		note = "-"
	}

	approveURL := fmt.Sprintf("%s/approve/%s?action=approve", c.cfg.Origin, email.RequestNo)
	rejectURL := fmt.Sprintf("%s/approve/%s?action=reject", c.cfg.Origin, email.RequestNo)

	payload := map[string]interface{}{
		"service_id":  c.cfg.ServiceID,
		"template_id": c.cfg.TemplateID,
		"user_id":     c.cfg.PublicKey,
		"template_params": map[string]string{
			"to_email":      email.ApproverEmail,
			"approver_name": approverName,
			"requester":     email.Requester,
			"account_name":  email.AccountName,
			"amount":        email.Amount,
			"items_table":   itemsTable,
			"note":          note,
			"approve_url":   approveURL,
			"reject_url":    rejectURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		providerText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("email provider rejected send",
			zap.Int("status", resp.StatusCode),
			zap.String("request_no", email.RequestNo))
		return fmt.Errorf("%w: email provider returned %d: %s", apperrors.ErrDelivery, resp.StatusCode, string(providerText))
	}

	c.logger.Info("approval email sent",
		zap.String("request_no", email.RequestNo),
		zap.String("to", email.ApproverEmail))
	return nil
}

func renderItemsTable(items []LineItem) (string, error) {
	type row struct {
		Index    int
		Item     string
		Quantity int
	}
	rows := make([]row, 0, len(items))
	for i, it := range items {
		rows = append(rows, row{Index: i + 1, Item: it.Item, Quantity: it.Quantity})
	}

	var buf bytes.Buffer
	if err := itemsTableTmpl.Execute(&buf, rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var itemsTableTmpl = template.Must(template.New("items").Parse(`
<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
  <thead>
    <tr style="background-color: #f8f9fa;">
      <th style="border: 1px solid #ddd; padding: 12px; text-align: left;">No.</th>
      <th style="border: 1px solid #ddd; padding: 12px; text-align: left;">Item</th>
      <th style="border: 1px solid #ddd; padding: 12px; text-align: center;">Quantity</th>
    </tr>
  </thead>
  <tbody>
    {{- range .}}
    <tr>
      <td style="border: 1px solid #ddd; padding: 12px; text-align: center;">{{.Index}}</td>
      <td style="border: 1px solid #ddd; padding: 12px;">{{.Item}}</td>
      <td style="border: 1px solid #ddd; padding: 12px; text-align: center;">{{.Quantity}}</td>
    </tr>
    {{- end}}
  </tbody>
</table>
`))
