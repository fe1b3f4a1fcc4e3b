package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "strings"
  "time"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/utils"
)

type MailerService interface {
  SendLoginLink(ctx context.Context, toEmail, loginURL string) error
}

type mailerService struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  fromEmail  string
  fromName   string
  httpClient *http.Client
  maxRetries int
}

func NewMailerService(log *logger.Logger) (MailerService, error) {
  serviceLog := log.With("service", "MailerService")
  apiKey := strings.TrimSpace(utils.GetEnv("SENDGRID_API_KEY", "", log))
  if apiKey == "" {
    return nil, fmt.Errorf("missing SENDGRID_API_KEY")
  }
  baseURL := utils.GetEnv("SENDGRID_BASE_URL", "https://api.sendgrid.com", log)
  fromEmail := utils.GetEnv("SENDGRID_FROM_EMAIL", "no-reply@assetorganizer.app", log)
  fromName := utils.GetEnv("SENDGRID_FROM_NAME", "Asset Organizer", log)
  timeoutSec := utils.GetEnvAsInt("SENDGRID_TIMEOUT_SECONDS", 30, log)
  maxRetries := utils.GetEnvAsInt("SENDGRID_MAX_RETRIES", 3, log)

  return &mailerService{
    log:        serviceLog,
    baseURL:    strings.TrimRight(baseURL, "/"),
    apiKey:     apiKey,
    fromEmail:  fromEmail,
    fromName:   fromName,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type mailAddress struct {
  Email string `json:"email"`
  Name  string `json:"name,omitempty"`
}

type mailRequest struct {
  Personalizations []struct {
    To []mailAddress `json:"to"`
  } `json:"personalizations"`
  From    mailAddress `json:"from"`
  Subject string      `json:"subject"`
  Content []struct {
    Type  string `json:"type"`
    Value string `json:"value"`
  } `json:"content"`
}

func (ms *mailerService) SendLoginLink(ctx context.Context, toEmail, loginURL string) error {
  body := mailRequest{
    From:    mailAddress{Email: ms.fromEmail, Name: ms.fromName},
    Subject: "Your Asset Organizer sign-in link",
  }
  body.Personalizations = append(body.Personalizations, struct {
    To []mailAddress `json:"to"`
  }{To: []mailAddress{{Email: toEmail}}})
  body.Content = append(body.Content, struct {
    Type  string `json:"type"`
    Value string `json:"value"`
  }{
    Type:  "text/plain",
    Value: fmt.Sprintf("Sign in to Asset Organizer:\n\n%s\n\nThe link expires in 15 minutes. If you didn't request it, ignore this email.", loginURL),
  })

  var lastErr error
  backoff := 1 * time.Second
  for attempt := 0; attempt <= ms.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }
    lastErr = ms.sendOnce(ctx, body)
    if lastErr == nil {
      return nil
    }
    if attempt == ms.maxRetries {
      break
    }
    ms.log.Warn("Mail send retrying", "attempt", attempt+1, "error", lastErr)
    time.Sleep(backoff)
    backoff *= 2
  }
  return fmt.Errorf("send login link: %w", lastErr)
}

func (ms *mailerService) sendOnce(ctx context.Context, body mailRequest) error {
  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(body); err != nil {
    return err
  }
  req, err := http.NewRequestWithContext(ctx, http.MethodPost, ms.baseURL+"/v3/mail/send", &buf)
  if err != nil {
    return err
  }
  req.Header.Set("Authorization", "Bearer "+ms.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := ms.httpClient.Do(req)
  if err != nil {
    return err
  }
  raw, _ := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return fmt.Errorf("sendgrid http %d: %s", resp.StatusCode, string(raw))
  }
  return nil
}
