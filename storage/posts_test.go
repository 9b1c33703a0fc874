package storage

import (
	"reflect"
	"testing"
)

var hashtagTests = []struct {
	content  string
	expected []string
}{
	{"study group for #algorithms tonight", []string{"algorithms"}},
	{"#GoLang #golang #GOLANG", []string{"golang"}},
	{"#exam2026 room #b12", []string{"exam2026", "b12"}},
	{"nothing tagged", nil},
	{"edge#case is not a tag start, but picks up #case", []string{"case"}},
}

func TestExtractHashtags(t *testing.T) {
	for _, tt := range hashtagTests {
		t.Run(tt.content, func(t *testing.T) {
			got := extractHashtags(tt.content)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}
