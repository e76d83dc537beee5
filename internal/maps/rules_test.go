package maps

import (
	"reflect"
	"testing"
)

func TestRulesValidate(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name        string
		title       string
		description string
		movies      int
		want        []string
	}{
		{name: "valid", title: "Abc", description: "Hello", movies: 3, want: nil},
		{name: "too few movies", title: "Abc", description: "Hello", movies: 2, want: []string{"movies"}},
		{name: "everything missing", title: "", description: "", movies: 0, want: []string{"title", "description", "movies"}},
		{name: "short description", title: "Noir", description: "Dark", movies: 5, want: []string{"description"}},
		{name: "runes not bytes", title: "Été", description: "Films", movies: 3, want: nil},
		{name: "two rune title", title: "Ét", description: "Films", movies: 3, want: []string{"title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.Validate(tt.title, tt.description, tt.movies)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRulesValidateConfigurableDescription(t *testing.T) {
	rules := Rules{MinTitleLength: 3, MinDescriptionLength: 10, MinMovies: 3}
	got := rules.Validate("Abc", "Hello", 3)
	if !reflect.DeepEqual(got, []string{"description"}) {
		t.Fatalf("Validate() = %v, want [description]", got)
	}
}

func TestInvalidToSaveErrorMessage(t *testing.T) {
	err := &InvalidToSaveError{Fields: []string{"title", "movies"}}
	if err.Error() != "maps: invalid to save: title, movies" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
