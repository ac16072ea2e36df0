package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagewidgets/pagewidgets-server/internal/onboarding"
	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Create a widget step by step",
}

var onboardBookCmd = &cobra.Command{
	Use:   "book",
	Short: "Create a book search widget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOnboardCmd(cmd, onboarding.NewBook(newClient()))
	},
}

var onboardTodoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Create a daily to-do widget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runOnboardCmd(cmd, onboarding.NewTodo(newClient()))
	},
}

func init() {
	onboardCmd.AddCommand(onboardBookCmd)
	onboardCmd.AddCommand(onboardTodoCmd)
}

func runOnboardCmd(cmd *cobra.Command, f *onboarding.Flow) error {
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	embed, err := runOnboarding(cmd.Context(), f, p)
	if err != nil {
		return err
	}
	p.printf("\n위젯이 생성되었습니다.\n%s\n", embed)
	return nil
}

// prompter reads answers line by line.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// ask prints label and returns the trimmed answer, or def when the answer
// is blank. It fails with io.ErrUnexpectedEOF when input ends.
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		p.printf("%s [%s]: ", label, def)
	} else {
		p.printf("%s: ", label)
	}
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	answer := strings.TrimSpace(p.in.Text())
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// choose asks for one of options by number or by value.
func (p *prompter) choose(label string, options []string, def string) (string, error) {
	for i, o := range options {
		p.printf("  %d) %s\n", i+1, o)
	}
	for {
		answer, err := p.ask(label, def)
		if err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		if slices.Contains(options, answer) {
			return answer, nil
		}
		p.printf("목록에서 선택해주세요.\n")
	}
}

// runOnboarding walks f from connection to creation and returns the embed
// URL.
func runOnboarding(ctx context.Context, f *onboarding.Flow, p *prompter) (string, error) {
	for f.Step() != onboarding.StepDone {
		p.printf("\n[%s]\n", f.Step())
		var err error
		switch f.Step() {
		case onboarding.StepConnect:
			err = connectStep(ctx, f, p)
		case onboarding.StepSelect:
			err = selectStep(ctx, f, p)
		case onboarding.StepDesign:
			err = designStep(f, p)
			if err == nil {
				_, err = f.Create(ctx)
			}
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return "", err
		}
		if err != nil {
			p.printf("%s\n", err)
		}
	}
	return f.EmbedURL(), nil
}

func connectStep(ctx context.Context, f *onboarding.Flow, p *prompter) error {
	token, err := p.ask("Notion API 토큰", "")
	if err != nil {
		return err
	}
	return f.Connect(ctx, token)
}

func selectStep(ctx context.Context, f *onboarding.Flow, p *prompter) error {
	dbs := f.Databases()
	if len(dbs) == 0 {
		p.printf("연결된 데이터베이스가 없습니다. 통합에 데이터베이스를 공유한 뒤 다시 시도해주세요.\n")
		f.Back()
		return nil
	}
	titles := make([]string, len(dbs))
	for i, db := range dbs {
		titles[i] = db.Title
	}
	title, err := p.choose("데이터베이스", titles, "")
	if err != nil {
		return err
	}
	return f.SelectDatabase(ctx, dbs[slices.Index(titles, title)].ID)
}

func designStep(f *onboarding.Flow, p *prompter) error {
	if f.Kind() == onboarding.KindTodo {
		if err := todoColumns(f, p); err != nil {
			return err
		}
	} else if err := bookColumns(f, p); err != nil {
		return err
	}

	var names []string
	for _, preset := range onboarding.Presets(f.Kind()) {
		names = append(names, preset.Name)
	}
	preset, err := p.choose("테마", names, f.Preset())
	if err != nil {
		return err
	}
	if preset != f.Preset() {
		if err := f.ApplyPreset(preset); err != nil {
			return err
		}
	}

	font, err := p.choose("글꼴", onboarding.FontFamilies, f.Theme().FontFamily)
	if err != nil {
		return err
	}
	f.SetFontFamily(font)

	opacity, err := p.ask("배경 불투명도 (0-100)", strconv.Itoa(f.Theme().BackgroundOpacity))
	if err != nil {
		return err
	}
	if n, convErr := strconv.Atoi(opacity); convErr == nil {
		f.SetBackgroundOpacity(n)
	}

	if f.Kind() == onboarding.KindTodo {
		return recurringItems(f, p)
	}
	return nil
}

func bookColumns(f *onboarding.Flow, p *prompter) error {
	m := f.BookMap()
	fields := []struct {
		label string
		dst   *string
	}{
		{"제목 속성", &m.TitleProperty},
		{"저자 속성", &m.AuthorProperty},
		{"표지 속성", &m.CoverProperty},
		{"상태 속성", &m.StatusProperty},
	}
	for _, field := range fields {
		v, err := p.ask(field.label, *field.dst)
		if err != nil {
			return err
		}
		*field.dst = v
	}
	f.SetBookMap(m)
	return nil
}

func todoColumns(f *onboarding.Flow, p *prompter) error {
	m := f.TodoMap()
	date, err := p.ask("날짜 속성", m.DateProperty)
	if err != nil {
		return err
	}
	title, err := p.ask("제목 속성", m.TitleProperty)
	if err != nil {
		return err
	}
	m.DateProperty, m.TitleProperty = date, title
	f.SetTodoMap(m)
	return nil
}

func recurringItems(f *onboarding.Flow, p *prompter) error {
	p.printf("매일 반복할 할 일을 입력하세요. 빈 줄로 마칩니다.\n")
	for len(f.Recurring()) < widgetcfg.MaxRecurring {
		text, err := p.ask(fmt.Sprintf("반복 할 일 %d", len(f.Recurring())+1), "")
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		if err := f.AddRecurring(text); err != nil {
			return err
		}
	}
	return nil
}
