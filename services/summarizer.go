package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"paper-radar/config"
)

// Summarizer produces the Korean summaries. Implemented by the external AI
// CLI in production and by fakes in tests.
type Summarizer interface {
	SummarizeAbstract(ctx context.Context, abstract string) (string, error)
	AnalyzePaper(ctx context.Context, req AnalyzeRequest) (string, error)
}

// AnalyzeRequest carries everything the stage-3 deep analysis needs. The CLI
// reads the PDF from PDFURL itself, so no document bytes travel through here.
type AnalyzeRequest struct {
	PaperID  string
	Title    string
	Abstract string
	PDFURL   string
}

// CLISummarizer shells out to the configured AI CLI, feeding the prompt on
// stdin and reading the answer from stdout.
type CLISummarizer struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewCLISummarizer creates a summarizer backed by the external CLI.
func NewCLISummarizer(cfg *config.Config, logger *zap.Logger) *CLISummarizer {
	return &CLISummarizer{Config: cfg, Logger: logger}
}

func (s *CLISummarizer) runCLI(ctx context.Context, prompt string) (string, error) {
	timeout := time.Duration(s.Config.SummarizerTimeoutSeconds) * time.Second
	retries := s.Config.SummarizerMaxRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		cmd := exec.CommandContext(runCtx, s.Config.SummarizerCommand, "--print")
		cmd.Stdin = strings.NewReader(prompt)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		cancel()

		if err == nil {
			return strings.TrimSpace(stdout.String()), nil
		}

		lastErr = fmt.Errorf("summarizer cli: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
		s.Logger.Warn("AI CLI invocation failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", retries),
			zap.Error(err))

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < retries {
			time.Sleep(2 * time.Second)
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}

// SummarizeAbstract renders the stage-2 summary: the English abstract
// rewritten as a natural Korean digest.
func (s *CLISummarizer) SummarizeAbstract(ctx context.Context, abstract string) (string, error) {
	if strings.TrimSpace(abstract) == "" {
		return "", nil
	}

	prompt := fmt.Sprintf(`다음 논문 초록(Abstract)을 한국어로 자연스럽게 정리해주세요.
핵심 내용을 파악하기 쉽게 요약하고, 전문 용어는 영어를 괄호 안에 병기해주세요.

수식 포맷팅 규칙:
- 모든 수학 표현은 LaTeX 형식이어야 합니다
- 인라인 수식: $수식$ 형태 (예: $E = mc^2$)
- 디스플레이 수식: $$ 수식 $$ 형태 (각 $$ 전후로 개행)
- 첨자: underscore를 사용 (예: a_i, rho_pi_E)
- 분수: frac를 사용
- 그리스 문자: pi, alpha, rho 등의 LaTeX 명령어

초록:
%s

한국어 정리:`, abstract)

	s.Logger.Info("Summarizing abstract via AI CLI")
	result, err := s.runCLI(ctx, prompt)
	if err != nil {
		return "", err
	}
	s.Logger.Info("Abstract summary complete", zap.Int("result_length", len(result)))
	return result, nil
}

// AnalyzePaper renders the stage-3 deep analysis. The prompt hands the CLI
// the PDF URL so the tool reads the full document itself.
func (s *CLISummarizer) AnalyzePaper(ctx context.Context, req AnalyzeRequest) (string, error) {
	prompt := fmt.Sprintf(`다음 논문을 상세히 분석하여 한국어로 정리해주세요.
PDF URL에서 논문 전체를 직접 읽고 분석해주세요.

**논문 제목**: %s
**ArXiv ID**: %s
**PDF URL**: %s

**초록**:
%s

---

다음 형식으로 작성해주세요:

### 연구 배경 및 문제 정의
(이 연구가 해결하고자 하는 문제와 배경을 설명)

### 주요 기여점
(이 논문의 핵심 기여와 새로운 점을 bullet point로 정리)

### 제안 방법론
(논문에서 제안하는 방법론의 핵심 내용을 상세히 설명)

### 실험 및 결과
(실험 설정과 주요 결과를 정리)

### 핵심 인사이트
(이 논문의 주요 발견사항과 시사점)

### 한줄 요약
(논문의 핵심을 한 문장으로 요약)

---

중요: 수식 포맷팅 규칙
1. 모든 수학 표현은 LaTeX 형식이어야 합니다
2. 인라인 수식 (텍스트 중간): $수식$ 형태
3. 디스플레이 수식 (별도 줄): $$ 수식 $$ 형태 (각 $$ 전후로 개행)
4. 첨자: underscore 사용, 분수: frac 사용, 그리스 문자: pi, alpha, rho 등
5. 수식 내 일반 텍스트는 text 명령어 사용

전문 용어는 영어를 괄호 안에 병기해주세요.`,
		req.Title, req.PaperID, req.PDFURL, req.Abstract)

	s.Logger.Info("Analyzing paper via AI CLI", zap.String("paper_id", req.PaperID))
	result, err := s.runCLI(ctx, prompt)
	if err != nil {
		return "", err
	}
	s.Logger.Info("Deep analysis complete",
		zap.String("paper_id", req.PaperID), zap.Int("result_length", len(result)))
	return result, nil
}
