package match

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/revxslt/token"
)

func seq(ts ...token.Token) []token.Token { return ts }

func tag(name string, children ...token.Token) token.Token {
	return token.NewTag(name, children...)
}

func text(s string) token.Token { return token.NewText(s) }

func value(name string) token.Token { return token.NewValueOf(name) }

func ifBlock(name string, body ...token.Token) token.Token {
	return token.NewIf(name, body...)
}

func forEach(name string, body ...token.Token) token.Token {
	return token.NewForEach(name, body...)
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		template    []token.Token
		instance    []token.Token
		constraints map[string]string
		want        Bindings
		wantMatch   bool
	}{
		{
			name:      "empty template and instance",
			want:      Bindings{},
			wantMatch: true,
		},
		{
			name:     "empty template, non-empty instance",
			instance: seq(text("hello")),
		},
		{
			name:      "text equal after normalization",
			template:  seq(text("hello world")),
			instance:  seq(text("  hello\n\t world ")),
			want:      Bindings{},
			wantMatch: true,
		},
		{
			name:      "adjacent texts are merged",
			template:  seq(text("hello"), text("world")),
			instance:  seq(text("hello world")),
			want:      Bindings{},
			wantMatch: true,
		},
		{
			name:     "partial match is no match",
			template: seq(text("hello")),
			instance: seq(text("hello world")),
		},
		{
			name:     "tag does not match text",
			template: seq(tag("div")),
			instance: seq(text("div")),
		},
		{
			name:     "tag names must agree",
			template: seq(tag("div")),
			instance: seq(tag("span")),
		},
		{
			name:      "nested tags",
			template:  seq(tag("div", tag("a", text("quote of the day:"), tag("span", value("quote"))))),
			instance:  seq(tag("div", tag("a", text("quote of the day:"), tag("span", text("carpe diem"))))),
			want:      Bindings{"quote": Value("carpe diem")},
			wantMatch: true,
		},
		{
			name:      "value-of anchored by following text",
			template:  seq(value("var"), text("world")),
			instance:  seq(text("hello world")),
			want:      Bindings{"var": Value("hello")},
			wantMatch: true,
		},
		{
			name:      "value-of may capture nothing",
			template:  seq(text("hello"), value("var"), text("world")),
			instance:  seq(text("hello world")),
			want:      Bindings{"var": Value("")},
			wantMatch: true,
		},
		{
			name:      "value-of between tags",
			template:  seq(tag("div"), value("var"), tag("span")),
			instance:  seq(tag("div"), tag("span")),
			want:      Bindings{"var": Value("")},
			wantMatch: true,
		},
		{
			name:      "value-of before a tag takes the rest of the run",
			template:  seq(value("name"), tag("br"), text("end")),
			instance:  seq(text("two words"), tag("br"), text("end")),
			want:      Bindings{"name": Value("two words")},
			wantMatch: true,
		},
		{
			name:     "value-of cannot cross a tag",
			template: seq(text("hello"), value("var"), text("wordl")),
			instance: seq(text("hello"), tag("beautiful"), text("world")),
		},
		{
			name:      "equal captures of one name collapse",
			template:  seq(value("v"), text(":"), value("v")),
			instance:  seq(text("blue: blue")),
			want:      Bindings{"v": Value("blue")},
			wantMatch: true,
		},
		{
			name:      "equal captures across tags collapse",
			template:  seq(tag("a", value("v")), tag("b", value("v"))),
			instance:  seq(tag("a", text("x")), tag("b", text("x"))),
			want:      Bindings{"v": Value("x")},
			wantMatch: true,
		},
		{
			name:        "constrained value-of",
			template:    seq(text("A"), value("number")),
			instance:    seq(text("A10")),
			constraints: map[string]string{"number": `[0-9]+`},
			want:        Bindings{"number": Value("10")},
			wantMatch:   true,
		},
		{
			name:        "constraint rejects capture",
			template:    seq(text("A"), value("number")),
			instance:    seq(text("Ax10")),
			constraints: map[string]string{"number": `[0-9]+`},
		},
		{
			name:        "consecutive value-of separated by constraint",
			template:    seq(value("count"), value("noun")),
			instance:    seq(text("127 bits")),
			constraints: map[string]string{"count": `[0-9]+`},
			want:        Bindings{"count": Value("127"), "noun": Value("bits")},
			wantMatch:   true,
		},
		{
			name:        "greedy constraint leaves nothing for the next placeholder",
			template:    seq(value("a"), value("b")),
			instance:    seq(text("0123456789")),
			constraints: map[string]string{"a": `[0-9]+`, "b": `[0-9]+`},
		},
		{
			name:        "first constraint fails at the cursor",
			template:    seq(value("char"), value("number")),
			instance:    seq(text("A10")),
			constraints: map[string]string{"char": `[a-z]+`, "number": `[0-9]+`},
		},
		{
			name:      "if absent",
			template:  seq(ifBlock("var", tag("div"))),
			want:      Bindings{},
			wantMatch: true,
		},
		{
			name:      "if present",
			template:  seq(ifBlock("var", tag("div"))),
			instance:  seq(tag("div")),
			want:      Bindings{"var": Condition("")},
			wantMatch: true,
		},
		{
			name:     "if body does not fit",
			template: seq(ifBlock("var", tag("div"))),
			instance: seq(tag("span")),
		},
		{
			name:      "if skipped between texts",
			template:  seq(text("count:"), ifBlock("var", value("count"), text("users")), text("here")),
			instance:  seq(text("count:   here")),
			want:      Bindings{},
			wantMatch: true,
		},
		{
			name:      "if taken between texts",
			template:  seq(text("count:"), ifBlock("var", value("count"), text("users")), text("here")),
			instance:  seq(text("count: 42 users here")),
			want:      Bindings{"var": Condition("42 users"), "count": Value("42")},
			wantMatch: true,
		},
		{
			name: "case statement of ifs sharing a name",
			template: seq(
				ifBlock("if_kind", text("obowiązkowe")),
				ifBlock("if_kind", text("nieobowiązkowe")),
			),
			instance:  seq(text("nieobowiązkowe")),
			want:      Bindings{"if_kind": Condition("nieobowiązkowe")},
			wantMatch: true,
		},
		{
			name:      "nested if text",
			template:  seq(ifBlock("outer", text("test"), ifBlock("inner", text(",")))),
			instance:  seq(text("test,")),
			want:      Bindings{"outer": Condition("test ,"), "inner": Condition(",")},
			wantMatch: true,
		},
		{
			name:     "if with repeated block inside",
			template: seq(ifBlock("list", text("tags:"), forEach("tags", tag("i", value("t"))))),
			instance: seq(text("tags:"), tag("i", text("a")), tag("i", text("b"))),
			want: Bindings{
				"list": Condition("tags: a b"),
				"tags": List(Bindings{"t": Value("a")}, Bindings{"t": Value("b")}),
			},
			wantMatch: true,
		},
		{
			name:      "for-each zero repetitions",
			template:  seq(forEach("items", tag("li"))),
			want:      Bindings{"items": List()},
			wantMatch: true,
		},
		{
			name:      "for-each repeated text",
			template:  seq(forEach("group", text("world"))),
			instance:  seq(text(" world world world world world world ")),
			want:      Bindings{"group": List(Bindings{}, Bindings{}, Bindings{}, Bindings{}, Bindings{}, Bindings{})},
			wantMatch: true,
		},
		{
			name:     "for-each scopes are isolated",
			template: seq(tag("ul", forEach("items", tag("li", value("name"))))),
			instance: seq(tag("ul", tag("li", text("a")), tag("li", text("b")), tag("li", text("c")))),
			want: Bindings{"items": List(
				Bindings{"name": Value("a")},
				Bindings{"name": Value("b")},
				Bindings{"name": Value("c")},
			)},
			wantMatch: true,
		},
		{
			name:     "nested for-each",
			template: seq(forEach("rows", tag("tr", forEach("cells", tag("td", value("v")))))),
			instance: seq(
				tag("tr", tag("td", text("1")), tag("td", text("2"))),
				tag("tr", tag("td", text("3"))),
			),
			want: Bindings{"rows": List(
				Bindings{"cells": List(Bindings{"v": Value("1")}, Bindings{"v": Value("2")})},
				Bindings{"cells": List(Bindings{"v": Value("3")})},
			)},
			wantMatch: true,
		},
		{
			name:      "for-each followed by text",
			template:  seq(forEach("items", tag("li")), text("total")),
			instance:  seq(tag("li"), tag("li"), text("total")),
			want:      Bindings{"items": List(Bindings{}, Bindings{})},
			wantMatch: true,
		},
		{
			name:        "for-each with constrained placeholder",
			template:    seq(forEach("g", value("n"))),
			instance:    seq(text("0123456789")),
			constraints: map[string]string{"n": `[0-9]+`},
			want:        Bindings{"g": List(Bindings{"n": Value("0123456789")})},
			wantMatch:   true,
		},
		{
			name:        "separated list resolved by constraint",
			template:    seq(forEach("var", value("number"), ifBlock("comma", text(",")))),
			instance:    seq(text("123, 124 ,125, 1000")),
			constraints: map[string]string{"number": `[0-9]+`},
			want: Bindings{"var": List(
				Bindings{"number": Value("123"), "comma": Condition(",")},
				Bindings{"number": Value("124"), "comma": Condition(",")},
				Bindings{"number": Value("125"), "comma": Condition(",")},
				Bindings{"number": Value("1000")},
			)},
			wantMatch: true,
		},
		{
			name:        "for-each splits constrained captures on spaces",
			template:    seq(forEach("g", value("n"))),
			instance:    seq(text(" 0 12 345 6789 ")),
			constraints: map[string]string{"n": `[0-9]+`},
			want: Bindings{"g": List(
				Bindings{"n": Value("0")},
				Bindings{"n": Value("12")},
				Bindings{"n": Value("345")},
				Bindings{"n": Value("6789")},
			)},
			wantMatch: true,
		},
		{
			name:      "captured whitespace is collapsed",
			template:  seq(value("v")),
			instance:  seq(text("   a   b   e ")),
			want:      Bindings{"v": Value("a b e")},
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok, err := Match(tt.template, tt.instance, WithConstraints(MustConstraints(tt.constraints)))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatch, ok)
			if tt.wantMatch {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestMatchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		template    []token.Token
		instance    []token.Token
		constraints map[string]string
		wantErr     error
	}{
		{
			name:     "nil template token",
			template: seq(nil),
			wantErr:  ErrIllegalMatchUse,
		},
		{
			name:     "typed nil instance token",
			template: seq(tag("div")),
			instance: seq(tag("div", (*token.Text)(nil))),
			wantErr:  ErrIllegalMatchUse,
		},
		{
			name:     "instance holds a placeholder",
			template: seq(value("a")),
			instance: seq(value("b")),
			wantErr:  ErrDisallowedMatch,
		},
		{
			name:     "instance holds a nested block",
			template: seq(tag("div")),
			instance: seq(tag("div", ifBlock("x"))),
			wantErr:  ErrDisallowedMatch,
		},
		{
			name:     "consecutive placeholders",
			template: seq(value("a"), value("b")),
			instance: seq(text("x")),
			wantErr:  ErrConsecutiveValueOfToken,
		},
		{
			name:     "consecutive placeholders in a tag that does not match",
			template: seq(tag("div", value("a"), value("b"))),
			instance: seq(tag("span")),
			wantErr:  ErrConsecutiveValueOfToken,
		},
		{
			name:     "conflicting captures",
			template: seq(value("v"), text(":"), value("v")),
			instance: seq(text("color: blue")),
			wantErr:  ErrDuplicatedTokenName,
		},
		{
			name:        "conflicting constrained captures",
			template:    seq(value("value"), value("value")),
			instance:    seq(text("123 124")),
			constraints: map[string]string{"value": `[0-9]+`},
			wantErr:     ErrDuplicatedTokenName,
		},
		{
			name:     "if name taken twice",
			template: seq(tag("a", ifBlock("c", text("red"))), tag("b", ifBlock("c", text("red")))),
			instance: seq(tag("a", text("red")), tag("b", text("red"))),
			wantErr:  ErrDuplicatedTokenName,
		},
		{
			name:     "separated list without constraint",
			template: seq(forEach("var", value("number"), ifBlock("comma", text(",")))),
			instance: seq(text("123, 124 ,125, 1000")),
			wantErr:  ErrAmbiguousMatch,
		},
		{
			name:     "unconstrained for-each over one word",
			template: seq(forEach("g", value("n"))),
			instance: seq(text("0123456789")),
			wantErr:  ErrAmbiguousMatch,
		},
		{
			name:     "placeholder before optional text",
			template: seq(value("a"), ifBlock("b", text("x")), text("y")),
			instance: seq(text("1 x y x y")),
			wantErr:  ErrAmbiguousMatch,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok, err := Match(tt.template, tt.instance, WithConstraints(MustConstraints(tt.constraints)))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestMatchErrorDetails(t *testing.T) {
	t.Parallel()

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		_, _, err := Match(seq(value("v"), text(":"), value("v")), seq(text("color: blue")))
		var dup *DuplicateError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "v", dup.Name)
		assert.ElementsMatch(t, []string{"color", "blue"}, []string{dup.First.Value, dup.Second.Value})
	})

	t.Run("consecutive", func(t *testing.T) {
		t.Parallel()
		_, _, err := Match(seq(value("a"), value("b")), nil)
		var cons *ConsecutiveError
		require.True(t, errors.As(err, &cons))
		assert.Equal(t, "a", cons.First)
		assert.Equal(t, "b", cons.Second)
	})

	t.Run("repetition count", func(t *testing.T) {
		t.Parallel()
		// one item holding every digit and two items splitting them both
		// align, and so do the different splits into two items
		_, _, err := Match(seq(forEach("g", value("n"))), seq(text("0123456789")))
		var amb *AmbiguityError
		require.True(t, errors.As(err, &amb))
		assert.Equal(t, "n", amb.Name)
		assert.Equal(t, []Bindings{{"n": Value("0")}, {"n": Value("01")}}, amb.Alternatives)
	})

	t.Run("ambiguity", func(t *testing.T) {
		t.Parallel()
		_, _, err := Match(
			seq(forEach("var", value("number"), ifBlock("comma", text(",")))),
			seq(text("123, 124")),
		)
		var amb *AmbiguityError
		require.True(t, errors.As(err, &amb))
		assert.Len(t, amb.Alternatives, 2)
		assert.False(t, amb.Alternatives[0].Equal(amb.Alternatives[1]))
	})
}

func TestMatchRealLifeNotice(t *testing.T) {
	t.Parallel()

	template := seq(
		text("Ogłoszenie nr"), value("pozycja"),
		text("-"), value("biuletyn"),
		text("z dnia"), value("data"), text("r."),
	)
	instance := seq(text("Ogłoszenie nr 319020 - 2016 z dnia 2016-10-06 r."))

	got, ok, err := Match(template, instance)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Bindings{
		"pozycja":  Value("319020"),
		"biuletyn": Value("2016"),
		"data":     Value("2016-10-06"),
	}, got)
}

func TestMatchRealLifeNoticeWithConditions(t *testing.T) {
	t.Parallel()

	template := seq(
		tag("div", ifBlock("if_pozycja_data_publikacji_biuletyn",
			text("Ogłoszenie nr"), value("pozycja"),
			text("-"), value("biuletyn"),
			text("z dnia"), value("data_publikacji"), text("r."),
		)),
		tag("div",
			value("miejscowosc"), text(":"), value("nazwa_zamowienia"),
			tag("br"),
			text("OGŁOSZENIE O ZAMÓWIENIU -"),
			ifBlock("if_rodzaj_zamowienia", text("Roboty budowlane")),
			ifBlock("if_rodzaj_zamowienia", text("Dostawy")),
			ifBlock("if_rodzaj_zamowienia", text("Usługi")),
		),
		tag("div",
			tag("b", text("Zamieszczanie ogłoszenia:")),
			ifBlock("if_zamieszczanie_obowiazkowe", text("obowiązkowe")),
			ifBlock("if_zamieszczanie_obowiazkowe", text("nieobowiązkowe")),
		),
	)
	instance := seq(
		tag("div", text("Ogłoszenie nr 319424 - 2016 z dnia 2016-10-07 r.")),
		tag("div",
			text("Warszawa: Dostawa sprzętu"),
			tag("br"),
			text("OGŁOSZENIE O ZAMÓWIENIU - Dostawy"),
		),
		tag("div",
			tag("b", text("Zamieszczanie ogłoszenia:")),
			text("nieobowiązkowe"),
		),
	)

	got, ok, err := Match(template, instance)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Bindings{
		"if_pozycja_data_publikacji_biuletyn": Condition("Ogłoszenie nr 319424 - 2016 z dnia 2016-10-07 r."),
		"pozycja":                             Value("319424"),
		"biuletyn":                            Value("2016"),
		"data_publikacji":                     Value("2016-10-07"),
		"miejscowosc":                         Value("Warszawa"),
		"nazwa_zamowienia":                    Value("Dostawa sprzętu"),
		"if_rodzaj_zamowienia":                Condition("Dostawy"),
		"if_zamieszczanie_obowiazkowe":        Condition("nieobowiązkowe"),
	}, got)
}

func TestMatchDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	template := seq(text("a"), text("b"), tag("div", value("x")))
	instance := seq(text(" a "), text("b"), tag("div", text(" y ")))
	tmplCopy := token.CloneSeq(template)
	instCopy := token.CloneSeq(instance)

	_, ok, err := Match(template, instance)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, token.EqualSeq(tmplCopy, template))
	assert.True(t, token.EqualSeq(instCopy, instance))
}

func TestMatchIsDeterministic(t *testing.T) {
	t.Parallel()

	template := seq(forEach("items", tag("li", value("name"))), text("total:"), value("total"))
	instance := seq(tag("li", text("a")), tag("li", text("b")), text("total: 2"))

	first, ok, err := Match(template, instance)
	require.NoError(t, err)
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, ok, err := Match(template, instance)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func longList(n int) []token.Token {
	items := make([]token.Token, n)
	for i := range items {
		items[i] = tag("li", text(strconv.Itoa(i)))
	}
	return items
}

func TestMatchLongRepetition(t *testing.T) {
	t.Parallel()

	got, ok, err := Match(seq(forEach("items", tag("li", value("n")))), longList(3000))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got["items"].List, 3000)
	assert.Equal(t, Value("2999"), got["items"].List[2999]["n"])
}

func TestMatchLongSeparatedList(t *testing.T) {
	t.Parallel()

	numbers := make([]string, 1500)
	for i := range numbers {
		numbers[i] = strconv.Itoa(i)
	}

	got, ok, err := Match(
		seq(forEach("var", value("number"), ifBlock("comma", text(",")))),
		seq(text(strings.Join(numbers, ", "))),
		WithConstraints(MustConstraints(map[string]string{"number": `[0-9]+`})),
	)
	require.NoError(t, err)
	require.True(t, ok)
	items := got["var"].List
	require.Len(t, items, 1500)
	for i, item := range items {
		want := Bindings{"number": Value(numbers[i]), "comma": Condition(",")}
		if i == len(items)-1 {
			want = Bindings{"number": Value(numbers[i])}
		}
		require.Equal(t, want, item, "item %d", i)
	}
}

func TestMatchLongListWithOptionalSeparators(t *testing.T) {
	t.Parallel()

	// an hr follows every odd item
	instance := make([]token.Token, 0, 1500)
	for i := 0; i < 1000; i++ {
		instance = append(instance, tag("li", text(strconv.Itoa(i))))
		if i%2 == 1 {
			instance = append(instance, tag("hr"))
		}
	}

	got, ok, err := Match(
		seq(forEach("items", tag("li", value("v")), ifBlock("sep", tag("hr")))),
		instance,
	)
	require.NoError(t, err)
	require.True(t, ok)
	items := got["items"].List
	require.Len(t, items, 1000)
	for i, item := range items {
		want := Bindings{"v": Value(strconv.Itoa(i))}
		if i%2 == 1 {
			want["sep"] = Condition("")
		}
		require.Equal(t, want, item, "item %d", i)
	}
}

func TestMatchBudget(t *testing.T) {
	t.Parallel()

	_, ok, err := Match(
		seq(forEach("items", tag("li", value("n")))),
		longList(100),
		WithBudget(10),
	)
	assert.ErrorIs(t, err, ErrSearchBudgetExceeded)
	assert.False(t, ok)

	_, ok, err = Match(
		seq(forEach("items", tag("li", value("n")))),
		longList(100),
		WithBudget(0),
	)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := Match(
		seq(forEach("items", tag("li", value("n")))),
		longList(3000),
		WithContext(ctx),
	)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestMatches(t *testing.T) {
	t.Parallel()

	ok, err := Matches(seq(text("hello"), value("v")), seq(text("hello world")))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(seq(tag("div")), seq(tag("span")))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Matches(seq(tag("div")), seq(value("v")))
	assert.ErrorIs(t, err, ErrDisallowedMatch)
}
