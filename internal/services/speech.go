package services

import (
  "context"
  "fmt"
  "math"
  "os"
  "path/filepath"
  "strings"
  "time"

  speech "cloud.google.com/go/speech/apiv1"
  speechpb "cloud.google.com/go/speech/apiv1/speechpb"
  "github.com/cenkalti/backoff/v4"
  "google.golang.org/api/option"
  "google.golang.org/grpc/codes"
  "google.golang.org/grpc/status"
  "google.golang.org/protobuf/types/known/durationpb"

  "github.com/assetorganizer/backend/internal/logger"
)

// SpeechSegment is one utterance of a transcript, grouped by speaker turn
// when diarization produced speaker tags, by 10s windows otherwise.
type SpeechSegment struct {
  Text     string
  StartSec float64
  EndSec   float64
  Speaker  string
}

type SpeechTranscript struct {
  FullText string
  Segments []SpeechSegment
}

type SpeechService interface {
  TranscribeGCS(ctx context.Context, gcsURI string) (*SpeechTranscript, error)
  Close() error
}

type speechService struct {
  log        *logger.Logger
  client     *speech.Client
  maxElapsed time.Duration
}

func NewSpeechService(baseLog *logger.Logger) (SpeechService, error) {
  log := baseLog.With("service", "SpeechService")

  var opts []option.ClientOption
  if credsJSON := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"); credsJSON != "" {
    opts = append(opts, option.WithCredentialsJSON([]byte(credsJSON)))
  }

  c, err := speech.NewClient(context.Background(), opts...)
  if err != nil {
    return nil, fmt.Errorf("speech client: %w", err)
  }

  return &speechService{
    log:        log,
    client:     c,
    maxElapsed: 2 * time.Minute,
  }, nil
}

func (s *speechService) Close() error {
  if s == nil || s.client == nil {
    return nil
  }
  return s.client.Close()
}

func (s *speechService) TranscribeGCS(ctx context.Context, gcsURI string) (*SpeechTranscript, error) {
  ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
  defer cancel()

  if !strings.HasPrefix(gcsURI, "gs://") {
    return nil, fmt.Errorf("gcsURI must be gs://... got %q", gcsURI)
  }

  req := &speechpb.LongRunningRecognizeRequest{
    Config: &speechpb.RecognitionConfig{
      LanguageCode:               "en-US",
      Model:                      "latest_long",
      EnableAutomaticPunctuation: true,
      EnableWordTimeOffsets:      true,
      Encoding:                   inferSpeechEncoding(gcsURI),
      DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
        EnableSpeakerDiarization: true,
        MinSpeakerCount:          1,
        MaxSpeakerCount:          6,
      },
    },
    Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Uri{Uri: gcsURI}},
  }

  var resp *speechpb.LongRunningRecognizeResponse
  operation := func() error {
    op, err := s.client.LongRunningRecognize(ctx, req)
    if err != nil {
      return classifySpeechErr(err)
    }
    out, err := op.Wait(ctx)
    if err != nil {
      return classifySpeechErr(err)
    }
    resp = out
    return nil
  }

  bo := backoff.NewExponentialBackOff()
  bo.InitialInterval = 750 * time.Millisecond
  bo.MaxInterval = 10 * time.Second
  bo.MaxElapsedTime = s.maxElapsed
  if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
    return nil, fmt.Errorf("speech longrunningrecognize: %w", err)
  }

  return parseSpeechResponse(resp), nil
}

// classifySpeechErr marks non-transient gRPC failures permanent so the
// backoff loop stops immediately instead of burning the retry budget.
func classifySpeechErr(err error) error {
  switch status.Code(err) {
  case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
    return err
  default:
    return backoff.Permanent(err)
  }
}

func inferSpeechEncoding(gcsURI string) speechpb.RecognitionConfig_AudioEncoding {
  switch strings.ToLower(filepath.Ext(gcsURI)) {
  case ".wav":
    return speechpb.RecognitionConfig_LINEAR16
  case ".flac":
    return speechpb.RecognitionConfig_FLAC
  case ".mp3":
    return speechpb.RecognitionConfig_MP3
  case ".ogg", ".opus":
    return speechpb.RecognitionConfig_OGG_OPUS
  default:
    return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
  }
}

type speechWord struct {
  w   string
  s   float64
  e   float64
  spk int
}

func parseSpeechResponse(resp *speechpb.LongRunningRecognizeResponse) *SpeechTranscript {
  out := &SpeechTranscript{}
  if resp == nil || len(resp.Results) == 0 {
    return out
  }

  words := []speechWord{}
  var full strings.Builder

  for _, r := range resp.Results {
    if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
      continue
    }
    alt := r.Alternatives[0]
    if strings.TrimSpace(alt.Transcript) == "" {
      continue
    }
    if full.Len() > 0 {
      full.WriteString(" ")
    }
    full.WriteString(strings.TrimSpace(alt.Transcript))

    for _, ww := range alt.Words {
      if ww == nil {
        continue
      }
      words = append(words, speechWord{
        w:   ww.Word,
        s:   durToSec(ww.StartTime),
        e:   durToSec(ww.EndTime),
        spk: int(ww.SpeakerTag),
      })
    }
  }

  out.FullText = strings.TrimSpace(full.String())

  switch {
  case hasSpeakerTags(words):
    out.Segments = groupBySpeaker(words)
  case len(words) > 0:
    out.Segments = groupByTime(words, 10.0)
  case out.FullText != "":
    out.Segments = []SpeechSegment{{Text: out.FullText}}
  }

  return out
}

func hasSpeakerTags(words []speechWord) bool {
  for _, w := range words {
    if w.spk > 0 {
      return true
    }
  }
  return false
}

func speakerLabel(tag int) string {
  if tag <= 0 {
    return ""
  }
  return fmt.Sprintf("Speaker %d", tag)
}

func groupBySpeaker(words []speechWord) []SpeechSegment {
  if len(words) == 0 {
    return nil
  }

  segs := []SpeechSegment{}
  curSpk := words[0].spk
  curStart := words[0].s
  curEnd := words[0].e
  var buf strings.Builder

  flush := func() {
    txt := strings.TrimSpace(buf.String())
    if txt == "" {
      return
    }
    segs = append(segs, SpeechSegment{
      Text:     txt,
      StartSec: curStart,
      EndSec:   curEnd,
      Speaker:  speakerLabel(curSpk),
    })
    buf.Reset()
  }

  for _, w := range words {
    if w.spk != curSpk && buf.Len() > 0 {
      flush()
      curSpk = w.spk
      curStart = w.s
    }
    if buf.Len() > 0 {
      buf.WriteString(" ")
    }
    buf.WriteString(w.w)
    curEnd = math.Max(curEnd, w.e)
  }
  flush()
  return segs
}

func groupByTime(words []speechWord, windowSec float64) []SpeechSegment {
  if len(words) == 0 {
    return nil
  }
  if windowSec <= 0 {
    windowSec = 10
  }

  segs := []SpeechSegment{}
  curStart := words[0].s
  curEnd := words[0].e
  var buf strings.Builder

  flush := func() {
    txt := strings.TrimSpace(buf.String())
    if txt == "" {
      return
    }
    segs = append(segs, SpeechSegment{Text: txt, StartSec: curStart, EndSec: curEnd})
    buf.Reset()
  }

  for _, w := range words {
    if (w.s-curStart) >= windowSec && buf.Len() > 0 {
      flush()
      curStart = w.s
      curEnd = w.e
    }
    if buf.Len() > 0 {
      buf.WriteString(" ")
    }
    buf.WriteString(w.w)
    if w.e > curEnd {
      curEnd = w.e
    }
  }
  flush()
  return segs
}

func durToSec(d *durationpb.Duration) float64 {
  if d == nil {
    return 0
  }
  return float64(d.Seconds) + float64(d.Nanos)/1e9
}
