package core

import (
	"context"
	"reflect"
	"testing"
)

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#ffaa00", "#ffaa00"},
		{"#FFAA00", "#FFAA00"},
		{"#ffaa00ff", "#ffaa00"},
		{"#ffaa00extra", "#ffaa00"},
		{"ffaa00", ""},
		{"#ffa", ""},
		{"#gggggg", ""},
		{"", ""},
		{"red", ""},
		{"blue", ""},
	}
	for _, tt := range tests {
		if got := NormalizeColor(tt.in); got != tt.want {
			t.Errorf("NormalizeColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMentionIDs(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"no mentions", nil},
		{"<@42>", []string{"42"}},
		{"<@42> <@42> <@7>", []string{"42", "7"}},
		{"<@abc> <@> <@12", nil},
		{"a<@1>b<@2>c<@1>", []string{"1", "2"}},
	}
	for _, tt := range tests {
		if got := MentionIDs(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("MentionIDs(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestMentionResolverDropsUnknown(t *testing.T) {
	bob := testUser(2, "42", "bob")
	users := newFakeUsers(bob)
	r := NewMentionResolver(users)

	found, summaries, err := r.Resolve(context.Background(), "<@42> <@999>")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(found) != 1 || found[0].ID != 2 {
		t.Fatalf("unexpected users %+v", found)
	}
	if len(summaries) != 1 || summaries[0].Username != "bob" {
		t.Fatalf("unexpected summaries %+v", summaries)
	}
}
