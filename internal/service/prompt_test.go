package service

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jjenkins/lawtrack/internal/model"
	"github.com/stretchr/testify/assert"
)

func promptFixture(diffCount int) PromptInput {
	diffs := make([]model.ArticleDiff, diffCount)
	for i := range diffs {
		diffs[i] = model.ArticleDiff{
			MST:        "12345",
			Seq:        i,
			OldNo:      sql.NullString{String: fmt.Sprintf("제%d조", i+1), Valid: true},
			OldContent: sql.NullString{String: fmt.Sprintf("<p>old %d</p>", i+1), Valid: true},
			NewNo:      sql.NullString{String: fmt.Sprintf("제%d조", i+1), Valid: true},
			NewContent: sql.NullString{String: fmt.Sprintf("new %d", i+1), Valid: true},
		}
	}

	return PromptInput{
		Event: model.ChangeEvent{
			MST:              "12345",
			ChangeType:       sql.NullString{String: "일부개정", Valid: true},
			PromulgationDate: sql.NullTime{Time: time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), Valid: true},
			CollectedDate:    testDay,
		},
		Law: &model.Law{LawID: "001", LawName: "산업안전보건법", LawTypeName: "법률", MinistryNames: "고용노동부"},
		OldNew: &model.OldNewInfo{
			MST:       "12345",
			HasOldNew: "Y",
			OldBasic:  map[string]any{"b": "2", "a": "1", "empty": "", "nil": nil},
			NewBasic:  map[string]any{"공포번호": 19591.0},
		},
		Diffs: diffs,
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	in := promptFixture(3)

	first := BuildPrompt(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, BuildPrompt(in))
	}
}

func TestBuildPrompt_Metadata(t *testing.T) {
	p := BuildPrompt(promptFixture(1))

	assert.Contains(t, p, "법령명: 산업안전보건법")
	assert.Contains(t, p, "제개정구분: 일부개정")
	assert.Contains(t, p, "공포일: 2024-02-09")
	assert.Contains(t, p, "시행일: \n")
	assert.Contains(t, p, "수집일: 2024-03-01")
	assert.Contains(t, p, "MST: 12345")
	assert.Contains(t, p, `"importance": "HIGH | MEDIUM | LOW | NONE 중 하나"`)
}

func TestBuildPrompt_BasicInfo(t *testing.T) {
	p := BuildPrompt(promptFixture(1))

	assert.Contains(t, p, "[개정 전 기본 정보]\n- a: 1\n- b: 2")
	assert.NotContains(t, p, "- empty:")
	assert.NotContains(t, p, "- nil:")
	assert.Contains(t, p, "- 공포번호: 19591")

	in := promptFixture(1)
	in.OldNew.NewBasic = map[string]any{}
	assert.Contains(t, BuildPrompt(in), "[개정 후 기본 정보] 정보 없음")

	in.OldNew = nil
	assert.Contains(t, BuildPrompt(in), "신·구조문 기본 정보 없음")
}

func TestBuildPrompt_TruncatesDiffs(t *testing.T) {
	p := BuildPrompt(promptFixture(7))

	assert.Contains(t, p, "- 조문 제5조 (항목 5)")
	assert.NotContains(t, p, "항목 6")
	assert.Contains(t, p, "... (총 7개 중 상위 5개만 표시)")
	assert.Contains(t, p, "[개정 전]\n  old 1\n  [개정 후]\n  new 1")
	assert.NotContains(t, p, "<p>")

	p = BuildPrompt(promptFixture(5))
	assert.NotContains(t, p, "상위 5개만 표시")

	assert.Contains(t, BuildPrompt(promptFixture(0)), "조문별 diff 정보 없음")
}

func TestBuildPrompt_AbsentSides(t *testing.T) {
	in := promptFixture(1)
	in.Diffs[0].OldNo = sql.NullString{}
	in.Diffs[0].OldContent = sql.NullString{}
	in.Diffs[0].NewNo = sql.NullString{String: "제9조", Valid: true}

	p := BuildPrompt(in)
	assert.Contains(t, p, "- 조문 제9조 (항목 1)\n  [개정 전]\n  (내용 없음)")
}

func TestCleanHTML(t *testing.T) {
	tests := map[string]string{
		"":                                 "",
		"<p>제1조(목적)</p>":                  "제1조(목적)",
		"<P >a</P>":                        "a",
		"&lt;신설 2024. 2. 9.&gt;":           "<신설 2024. 2. 9.>",
		"  <p>keep <b>bold</b></p>  ":      "keep <b>bold</b>",
	}

	for in, want := range tests {
		assert.Equal(t, want, cleanHTML(in), "input %q", in)
	}
}

func TestBuildPrompt_NilLaw(t *testing.T) {
	in := promptFixture(0)
	in.Law = nil

	p := BuildPrompt(in)
	assert.True(t, strings.Contains(p, "법령명: \n"))
}
