// Package schema infers which knowledge-base columns play the semantic roles
// a widget writes to.
//
// Detection is first-match-wins in declared column order. When two columns
// both qualify for a role the earlier one is chosen, even if the later one is
// a better fit. Callers relying on a particular column should name it so it
// is the first candidate.
package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Column types, as reported by the knowledge-base API.
const (
	TypeTitle    = "title"
	TypeRichText = "rich_text"
	TypeFiles    = "files"
	TypeURL      = "url"
	TypeSelect   = "select"
	TypeDate     = "date"
)

// Role is a semantic slot a widget fills.
type Role string

// Roles.
const (
	RoleTitle  Role = "title"
	RoleAuthor Role = "author"
	RoleCover  Role = "cover"
	RoleStatus Role = "status"
	RoleDate   Role = "date"
)

// Column is one property of a database, in declared order.
type Column struct {
	Name string
	Type string
}

// BookMap maps book roles to column names. Empty means the role is absent.
type BookMap struct {
	TitleProperty     string `json:"titleProperty"`
	AuthorProperty    string `json:"authorProperty"`
	CoverProperty     string `json:"coverProperty"`
	CoverPropertyType string `json:"coverPropertyType"`
	StatusProperty    string `json:"statusProperty"`
}

// TodoMap maps to-do roles to column names.
type TodoMap struct {
	DateProperty  string `json:"dateProperty"`
	TitleProperty string `json:"titleProperty"`
}

// MissingRoleError reports a mandatory role with no matching column.
type MissingRoleError struct {
	Role Role
}

func (e *MissingRoleError) Error() string {
	switch e.Role {
	case RoleTitle:
		return "제목 속성을 찾을 수 없습니다. 데이터베이스에 Title 타입의 속성을 추가해주세요."
	case RoleDate:
		return "날짜 속성을 찾을 수 없습니다. 데이터베이스에 Date 타입의 속성을 추가해주세요."
	default:
		return fmt.Sprintf("no column found for role %q", e.Role)
	}
}

// A rule matches a column of one of types whose lower-cased name equals one
// of exact or contains one of keywords. With neither set, type alone decides.
type rule struct {
	types    []string
	exact    []string
	keywords []string
}

var rules = map[Role]rule{
	RoleTitle:  {types: []string{TypeTitle}},
	RoleAuthor: {types: []string{TypeRichText}, keywords: []string{"author", "저자"}},
	RoleCover:  {types: []string{TypeFiles, TypeURL}, exact: []string{"cover"}, keywords: []string{"표지"}},
	RoleStatus: {types: []string{TypeSelect}, keywords: []string{"상태", "status"}},
	RoleDate:   {types: []string{TypeDate}},
}

// Find returns the first column in cols that satisfies role, and whether
// one was found.
func Find(cols []Column, role Role) (Column, bool) {
	r, ok := rules[role]
	if !ok {
		return Column{}, false
	}
	for _, c := range cols {
		if r.matches(c) {
			return c, true
		}
	}
	return Column{}, false
}

func (r rule) matches(c Column) bool {
	typeOK := false
	for _, t := range r.types {
		if c.Type == t {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}
	if len(r.exact) == 0 && len(r.keywords) == 0 {
		return true
	}
	name := strings.ToLower(norm.NFC.String(c.Name))
	for _, e := range r.exact {
		if name == e {
			return true
		}
	}
	for _, kw := range r.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// DetectBook maps a book database. Title is mandatory.
func DetectBook(cols []Column) (BookMap, error) {
	var m BookMap

	title, ok := Find(cols, RoleTitle)
	if !ok {
		return BookMap{}, &MissingRoleError{Role: RoleTitle}
	}
	m.TitleProperty = title.Name

	if c, ok := Find(cols, RoleAuthor); ok {
		m.AuthorProperty = c.Name
	}
	if c, ok := Find(cols, RoleCover); ok {
		m.CoverProperty = c.Name
		m.CoverPropertyType = c.Type
	}
	if c, ok := Find(cols, RoleStatus); ok {
		m.StatusProperty = c.Name
	}
	return m, nil
}

// DetectTodo maps a to-do database. Date and title are both mandatory.
func DetectTodo(cols []Column) (TodoMap, error) {
	date, ok := Find(cols, RoleDate)
	if !ok {
		return TodoMap{}, &MissingRoleError{Role: RoleDate}
	}
	title, ok := Find(cols, RoleTitle)
	if !ok {
		return TodoMap{}, &MissingRoleError{Role: RoleTitle}
	}
	return TodoMap{DateProperty: date.Name, TitleProperty: title.Name}, nil
}
