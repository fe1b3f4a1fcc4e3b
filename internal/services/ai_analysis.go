package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/assetorganizer/backend/internal/logger"
  "github.com/assetorganizer/backend/internal/types"
)

// PromptVersion is stamped on every analyzed asset so results from older
// prompts can be found and reanalyzed after a prompt change.
const PromptVersion = "v3"

const maxAnalysisTextChars = 24000

// AnalysisBrand is the tenant's brand context fed into the prompt.
type AnalysisBrand struct {
  CompanyName      string
  ValueProposition string
  TargetPersonas   []string
  PainPoints       []string
  Industries       []string
  ToneOfVoice      string
}

// AnalysisProductLine is one candidate product line the model may match.
type AnalysisProductLine struct {
  ID          uuid.UUID
  Name        string
  Description string
  Keywords    []string
}

// AnalysisInput describes one asset to categorize. Text is nil when no
// text could be extracted; the model then works from title, type and URL.
type AnalysisInput struct {
  Title        string
  OriginalName string
  MimeType     string
  FileURL      string
  Text         *string
  Brand        *AnalysisBrand
  ProductLines []AnalysisProductLine
}

// AssetAnalysis is the structured categorization of one asset.
type AssetAnalysis struct {
  FunnelStage          string
  ICPTargets           []string
  PainClusters         []string
  OutreachTip          string
  AtomicSnippets       []string
  ContentQualityScore  int
  ApplicableIndustries []string
  MatchedProductLineID *uuid.UUID
  Confidence           float64
  Model                string
  PromptVersion        string
  AnalyzedAt           time.Time
}

type AIAnalysisService interface {
  AnalyzeAsset(ctx context.Context, in AnalysisInput) (*AssetAnalysis, error)
}

type aiAnalysisService struct {
  log    *logger.Logger
  client OpenAIClient
}

func NewAIAnalysisService(baseLog *logger.Logger, client OpenAIClient) AIAnalysisService {
  return &aiAnalysisService{
    log:    baseLog.With("service", "AIAnalysisService"),
    client: client,
  }
}

func (s *aiAnalysisService) AnalyzeAsset(ctx context.Context, in AnalysisInput) (*AssetAnalysis, error) {
  system := buildAnalysisSystemPrompt(in.Brand)
  user := buildAnalysisUserPrompt(in)

  raw, err := s.client.GenerateJSON(ctx, system, user, "asset_analysis", analysisSchema(in.ProductLines))
  if err != nil {
    return nil, fmt.Errorf("analysis generate: %w", err)
  }

  out := &AssetAnalysis{
    FunnelStage:          strToUpper(raw["funnel_stage"]),
    ICPTargets:           strSlice(raw["icp_targets"]),
    PainClusters:         strSlice(raw["pain_clusters"]),
    OutreachTip:          str(raw["outreach_tip"]),
    AtomicSnippets:       strSlice(raw["atomic_snippets"]),
    ContentQualityScore:  clampScore(numInt(raw["content_quality_score"])),
    ApplicableIndustries: strSlice(raw["applicable_industries"]),
    Confidence:           clampConfidence(numFloat(raw["confidence"])),
    Model:                s.client.Model(),
    PromptVersion:        PromptVersion,
    AnalyzedAt:           time.Now().UTC(),
  }

  if !types.ValidFunnelStage(out.FunnelStage) {
    s.log.Warn("model returned invalid funnel stage, defaulting", "got", out.FunnelStage)
    out.FunnelStage = types.FunnelStageMOFU
  }

  if id := str(raw["matched_product_line_id"]); id != "" && !strings.EqualFold(id, "none") {
    parsed, perr := uuid.Parse(id)
    if perr == nil && productLineKnown(in.ProductLines, parsed) {
      out.MatchedProductLineID = &parsed
    } else {
      s.log.Warn("model returned unknown product line id, ignoring", "got", id)
    }
  }

  return out, nil
}

func buildAnalysisSystemPrompt(brand *AnalysisBrand) string {
  var b strings.Builder
  b.WriteString("You are a B2B marketing asset analyst. Categorize the given marketing asset for sales enablement.\n")
  b.WriteString("Funnel stages: TOFU_AWARENESS (educational, broad), MOFU_CONSIDERATION (comparisons, solution-oriented), BOFU_DECISION (pricing, case studies, proof), RETENTION (existing customers).\n")
  b.WriteString("Atomic snippets are short verbatim quotes or statistics from the asset usable in cold outreach.\n")
  b.WriteString("The outreach tip is one concrete sentence telling a sales rep when to send this asset.\n")
  if brand != nil {
    b.WriteString("\nBrand context:\n")
    if brand.CompanyName != "" {
      fmt.Fprintf(&b, "Company: %s\n", brand.CompanyName)
    }
    if brand.ValueProposition != "" {
      fmt.Fprintf(&b, "Value proposition: %s\n", brand.ValueProposition)
    }
    if len(brand.TargetPersonas) > 0 {
      fmt.Fprintf(&b, "Target personas: %s\n", strings.Join(brand.TargetPersonas, "; "))
    }
    if len(brand.PainPoints) > 0 {
      fmt.Fprintf(&b, "Known pain points: %s\n", strings.Join(brand.PainPoints, "; "))
    }
    if len(brand.Industries) > 0 {
      fmt.Fprintf(&b, "Industries served: %s\n", strings.Join(brand.Industries, "; "))
    }
    if brand.ToneOfVoice != "" {
      fmt.Fprintf(&b, "Tone of voice: %s\n", brand.ToneOfVoice)
    }
  }
  return b.String()
}

func buildAnalysisUserPrompt(in AnalysisInput) string {
  var b strings.Builder
  fmt.Fprintf(&b, "Asset title: %s\n", in.Title)
  if in.OriginalName != "" && in.OriginalName != in.Title {
    fmt.Fprintf(&b, "Original filename: %s\n", in.OriginalName)
  }
  fmt.Fprintf(&b, "Mime type: %s\n", in.MimeType)

  if len(in.ProductLines) > 0 {
    b.WriteString("\nProduct lines (match by id, or answer \"none\"):\n")
    for _, pl := range in.ProductLines {
      fmt.Fprintf(&b, "- id=%s name=%s", pl.ID, pl.Name)
      if pl.Description != "" {
        fmt.Fprintf(&b, " description=%s", pl.Description)
      }
      if len(pl.Keywords) > 0 {
        fmt.Fprintf(&b, " keywords=%s", strings.Join(pl.Keywords, ","))
      }
      b.WriteString("\n")
    }
  }

  if in.Text != nil && strings.TrimSpace(*in.Text) != "" {
    txt := *in.Text
    if len(txt) > maxAnalysisTextChars {
      txt = txt[:maxAnalysisTextChars]
    }
    b.WriteString("\nExtracted content:\n")
    b.WriteString(txt)
  } else {
    b.WriteString("\nNo text content could be extracted from this asset.")
    if in.FileURL != "" {
      fmt.Fprintf(&b, " File URL: %s", in.FileURL)
    }
    b.WriteString("\nAnalyze based on the title, filename and file type alone. Keep confidence low.")
  }
  return b.String()
}

func analysisSchema(lines []AnalysisProductLine) map[string]any {
  stageEnum := []string{
    types.FunnelStageTOFU,
    types.FunnelStageMOFU,
    types.FunnelStageBOFU,
    types.FunnelStageRetention,
  }
  return map[string]any{
    "type":                 "object",
    "additionalProperties": false,
    "required": []string{
      "funnel_stage", "icp_targets", "pain_clusters", "outreach_tip",
      "atomic_snippets", "content_quality_score", "applicable_industries",
      "matched_product_line_id", "confidence",
    },
    "properties": map[string]any{
      "funnel_stage": map[string]any{"type": "string", "enum": stageEnum},
      "icp_targets": map[string]any{
        "type":  "array",
        "items": map[string]any{"type": "string"},
      },
      "pain_clusters": map[string]any{
        "type":  "array",
        "items": map[string]any{"type": "string"},
      },
      "outreach_tip": map[string]any{"type": "string"},
      "atomic_snippets": map[string]any{
        "type":     "array",
        "items":    map[string]any{"type": "string"},
        "maxItems": 8,
      },
      "content_quality_score": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
      "applicable_industries": map[string]any{
        "type":  "array",
        "items": map[string]any{"type": "string"},
      },
      "matched_product_line_id": map[string]any{
        "type":        "string",
        "description": fmt.Sprintf("One of the %d provided product line ids, or \"none\"", len(lines)),
      },
      "confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
    },
  }
}

func productLineKnown(lines []AnalysisProductLine, id uuid.UUID) bool {
  for _, pl := range lines {
    if pl.ID == id {
      return true
    }
  }
  return false
}

func clampScore(v int) int {
  if v < 0 {
    return 0
  }
  if v > 100 {
    return 100
  }
  return v
}

func clampConfidence(v float64) float64 {
  if v < 0 {
    return 0
  }
  if v > 1 {
    return 1
  }
  return v
}

func str(v any) string {
  s, _ := v.(string)
  return strings.TrimSpace(s)
}

func strToUpper(v any) string {
  return strings.ToUpper(str(v))
}

func strSlice(v any) []string {
  arr, ok := v.([]any)
  if !ok {
    return nil
  }
  out := make([]string, 0, len(arr))
  for _, e := range arr {
    if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
      out = append(out, strings.TrimSpace(s))
    }
  }
  return out
}

func numInt(v any) int {
  switch n := v.(type) {
  case float64:
    return int(n)
  case int:
    return n
  case json.Number:
    i, _ := n.Int64()
    return int(i)
  default:
    return 0
  }
}

func numFloat(v any) float64 {
  switch n := v.(type) {
  case float64:
    return n
  case int:
    return float64(n)
  case json.Number:
    f, _ := n.Float64()
    return f
  default:
    return 0
  }
}
