// Copyright 2025 Joseph Cumines
//
// Element path formatting unit tests

package ax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementPath_String(t *testing.T) {
	tests := []struct {
		name string
		path ElementPath
		want string
	}{
		{
			name: "plain segments",
			path: ElementPath{
				Authority: "app",
				Segments: []Segment{
					{Role: RoleWindow, Index: NoIndex},
					{Role: RoleButton, Index: NoIndex},
				},
			},
			want: "ui://app/AXWindow/AXButton",
		},
		{
			name: "bare predicate value",
			path: ElementPath{
				Authority: "app",
				Segments: []Segment{{
					Role:       RoleButton,
					Predicates: []Predicate{{Name: "title", Value: "Save"}},
					Index:      NoIndex,
				}},
			},
			want: "ui://app/AXButton[title=Save]",
		},
		{
			name: "value with delimiter is quoted",
			path: ElementPath{
				Authority: "app",
				Segments: []Segment{{
					Role:       RoleMenuItem,
					Predicates: []Predicate{{Name: "title", Value: "Save, All"}},
					Index:      NoIndex,
				}},
			},
			want: `ui://app/AXMenuItem[title="Save, All"]`,
		},
		{
			name: "quote and backslash are escaped",
			path: ElementPath{
				Authority: "app",
				Segments: []Segment{{
					Role:       RoleMenuItem,
					Predicates: []Predicate{{Name: "title", Value: `a"b\c`}},
					Index:      NoIndex,
				}},
			},
			want: `ui://app/AXMenuItem[title="a\"b\\c"]`,
		},
		{
			name: "empty value is quoted",
			path: ElementPath{
				Authority: "app",
				Segments: []Segment{{
					Role:       RoleTextField,
					Predicates: []Predicate{{Name: "value", Value: ""}},
					Index:      NoIndex,
				}},
			},
			want: `ui://app/AXTextField[value=""]`,
		},
		{
			name: "index",
			path: ElementPath{
				Authority: "app",
				Segments:  []Segment{{Role: RoleButton, Index: 2}},
			},
			want: "ui://app/AXButton#2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.String())
		})
	}
}

func TestElementPath_RoundTrip(t *testing.T) {
	// Parse then String then Parse must yield an equal path.
	texts := []string{
		"ui://app/AXWindow",
		"ui://app/AXWindow[title=Untitled]/AXButton[identifier=save]",
		"ui://app/AXButton[title=OK,identifier=ok]#1",
		`ui://app/AXMenuItem[title="File, Edit/View"]`,
		`ui://app/AXMenuItem[title="quote \" slash \\"]`,
		"ui://com.example.App/AXMenuBar/AXMenuBarItem[title=File]/AXMenu/AXMenuItem[title=Save]",
	}
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			first, err := Parse(text)
			require.NoError(t, err)
			second, err := Parse(first.String())
			require.NoError(t, err)
			assert.True(t, first.Equal(second), "round trip of %q: %q", text, first.String())
		})
	}
}

func TestElementPath_Equal(t *testing.T) {
	base := MustParse("ui://app/AXButton[title=OK]#1")

	assert.True(t, base.Equal(MustParse("ui://app/AXButton[title=OK]#1")))
	assert.False(t, base.Equal(MustParse("ui://other/AXButton[title=OK]#1")), "authority differs")
	assert.False(t, base.Equal(MustParse("ui://app/AXButton[title=OK]")), "index differs")
	assert.False(t, base.Equal(MustParse("ui://app/AXButton[title=OK]#1/AXGroup")), "length differs")
	assert.False(t, base.Equal(MustParse("ui://app/AXButton[title=No]#1")), "predicate differs")
}

func TestElementPath_Child(t *testing.T) {
	base := MustParse("ui://app/AXMenuBar")
	child := base.Child(Segment{
		Role:       RoleMenuBarItem,
		Predicates: []Predicate{{Name: AttrTitle, Value: "File"}},
		Index:      NoIndex,
	})

	assert.Equal(t, "ui://app/AXMenuBar/AXMenuBarItem[title=File]", child.String())
	// The parent must be untouched.
	assert.Equal(t, "ui://app/AXMenuBar", base.String())
	assert.Len(t, base.Segments, 1)
}
