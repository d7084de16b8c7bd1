package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jjenkins/lawtrack/internal/model"
)

// maxPromptDiffs caps how many article diffs are rendered into a prompt
const maxPromptDiffs = 5

// NoActionNeeded is the single action recorded for NONE-importance changes
const NoActionNeeded = "조치할 사항이 없습니다."

var paragraphTag = regexp.MustCompile(`(?i)</?p\s*>`)

// PromptInput is everything the prompt is rendered from
type PromptInput struct {
	Event  model.ChangeEvent
	Law    *model.Law
	OldNew *model.OldNewInfo
	Diffs  []model.ArticleDiff
}

const promptIntro = `당신은 한국 산업안전보건·환경 법규를 분석하는 컴플라이언스 전문가입니다.
아래 정보는 안전보건관리 솔루션(중대재해처벌법 대응, KOSHA 가이드 기반)의
법규 변경이력입니다.

이 솔루션의 주요 메뉴는 다음과 같습니다.
- 경영: 경영책임자 의무, 안전보건 방침/목표, 이사회 보고 등
- 안전관리: 위험성평가, 작업허가, 설비/시설 점검, 법규 준수 평가, 자체점검
- 보건: 근로자 건강검진, 작업환경측정, 보호구 관리, 직업병 예방
- 환경: 대기/수질/폐기물/화학물질 관리, 배출시설 인허가, 환경점검

사용자는 공장 현장 근로자, 안전관리자, 환경/보건 담당자입니다.`

const promptInstructions = `요청사항:
1. 이번 법령 변경의 중요도를 아래 중 하나로 판단해 주세요.
- NONE: 시스템 관점에서 별도 조치가 거의 필요 없는 경미한 변경
- LOW: 인지는 필요하지만 즉시적인 조치는 크지 않은 변경
- MEDIUM: 관련 메뉴/문서를 수정해야 할 가능성이 있는 변경
- HIGH: 반드시 조치해야 하는 중요한 변경

2. 현업 담당자가 이해하기 쉽게, 변경의 핵심 내용을 한국어로 3~5줄 정도로 요약해 주세요.
- 실제로 변경된 조문(신·구조문 / diff)을 중심으로 설명해 주세요.

3. 우리 솔루션을 사용하는 사용자가 해야 할 구체적인 조치사항을 제안해 주세요.
- 담당자 관점으로 작성: 예) "안전관리자", "현장 반장", "환경 담당자", "경영책임자" 등
- 솔루션 메뉴와 연결해서 작성: 위험성평가, 법규 준수 평가, 작업허가, 교육관리, 문서관리, 설비점검, 환경점검 등
- 체크리스트 형태의 액션으로 작성: "무엇을, 어느 메뉴에서, 어떻게 변경/추가/점검할지"를 써주세요.

4. 만약 시스템이나 현장 조치가 사실상 필요 없는 경미한 변경이라면,
- importance를 "NONE"으로 설정하고
- actions 배열에는 "조치할 사항이 없습니다." 한 줄만 넣어 주세요.

반드시 아래 JSON 형식으로만 출력하세요. 다른 문장/설명은 절대 쓰지 마세요.

{
  "importance": "HIGH | MEDIUM | LOW | NONE 중 하나",
  "summary": "변경 내용을 한국어로 요약",
  "actions": [
    "첫번째 조치사항",
    "두번째 조치사항"
  ]
}`

// BuildPrompt renders the generation prompt for one change event. The output
// depends only on in.
func BuildPrompt(in PromptInput) string {
	var law model.Law
	if in.Law != nil {
		law = *in.Law
	}
	ev := in.Event

	var b strings.Builder
	b.WriteString(promptIntro)
	b.WriteString("\n\n[변경 이력 메타 정보]\n")
	fmt.Fprintf(&b, "법령명: %s\n", law.LawName)
	fmt.Fprintf(&b, "법령유형: %s\n", law.LawTypeName)
	fmt.Fprintf(&b, "소관부처: %s\n", law.MinistryNames)
	fmt.Fprintf(&b, "제개정구분: %s\n", ev.ChangeType.String)
	fmt.Fprintf(&b, "공포번호: %s\n", ev.PromulgationNo.String)
	fmt.Fprintf(&b, "공포일: %s\n", formatNullDate(ev.PromulgationDate))
	fmt.Fprintf(&b, "시행일: %s\n", formatNullDate(ev.EnforcementDate))
	fmt.Fprintf(&b, "수집일: %s\n", ev.CollectedDate.Format(dateLayout))
	fmt.Fprintf(&b, "MST: %s\n", ev.MST)

	b.WriteString("\n[신·구조문 정보 요약]\n")
	if in.OldNew.Comparable() {
		b.WriteString(formatBasic(in.OldNew.OldBasic, "개정 전 기본 정보"))
		b.WriteString("\n\n")
		b.WriteString(formatBasic(in.OldNew.NewBasic, "개정 후 기본 정보"))
	} else {
		b.WriteString("신·구조문 기본 정보 없음 (has_old_new != 'Y')")
	}

	b.WriteString("\n\n[조문별 diff 정보 요약]\n")
	b.WriteString(formatDiffs(in.Diffs))

	b.WriteString("\n\n")
	b.WriteString(promptInstructions)

	return b.String()
}

// cleanHTML unescapes entities and strips <p> tags from article text
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = paragraphTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func formatBasic(basic map[string]any, label string) string {
	keys := make([]string, 0, len(basic))
	for k := range basic {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		v := basicValue(basic[k])
		if v == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", k, v))
	}

	if len(lines) == 0 {
		return fmt.Sprintf("[%s] 정보 없음", label)
	}
	return fmt.Sprintf("[%s]\n%s", label, strings.Join(lines, "\n"))
}

func basicValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

func formatDiffs(diffs []model.ArticleDiff) string {
	if len(diffs) == 0 {
		return "조문별 diff 정보 없음"
	}

	shown := diffs
	if len(shown) > maxPromptDiffs {
		shown = shown[:maxPromptDiffs]
	}

	blocks := make([]string, 0, len(shown)+1)
	for idx, d := range shown {
		no := strings.TrimSpace(d.OldNo.String)
		if no == "" {
			no = strings.TrimSpace(d.NewNo.String)
		}
		if no == "" {
			no = "(조문 번호 없음)"
		}

		blocks = append(blocks, fmt.Sprintf("- 조문 %s (항목 %d)\n  [개정 전]\n  %s\n  [개정 후]\n  %s",
			no, idx+1, orPlaceholder(cleanHTML(d.OldContent.String)), orPlaceholder(cleanHTML(d.NewContent.String))))
	}

	if len(diffs) > maxPromptDiffs {
		blocks = append(blocks, fmt.Sprintf("... (총 %d개 중 상위 %d개만 표시)", len(diffs), maxPromptDiffs))
	}

	return strings.Join(blocks, "\n")
}

func orPlaceholder(s string) string {
	if s == "" {
		return "(내용 없음)"
	}
	return s
}

func formatNullDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(dateLayout)
}
