package query

import "strings"

var (
	locationTitle       = Col(TableLocations, "title")
	locationDescription = Col(TableLocations, "description")
	happeningTitle      = Col(TableHappenings, "title")
	happeningDesc       = Col(TableHappenings, "description")
	happeningURL        = Col(TableHappenings, "url")
	happeningStart      = Col(TableHappenings, "start_time")
	tagName             = Col(TableTags, "name")
)

// taggingJoins attaches tags to the base table through the polymorphic taggings table. Both
// joins are outer so that untagged entities survive.
func taggingJoins(kind EntityKind, table string) []JoinClause {
	return []JoinClause{
		{
			Type:  JoinLeftOuter,
			Table: TableTaggings,
			On: All(
				ColEq(Col(TableTaggings, "taggable_id"), Col(table, "id")),
				Eq(Plain(Col(TableTaggings, "taggable_type")), kind.TaggableType()),
			),
			OneToMany: true,
		},
		{
			Type:      JoinLeftOuter,
			Table:     TableTags,
			On:        ColEq(Col(TableTags, "id"), Col(TableTaggings, "tag_id")),
			OneToMany: true,
		},
	}
}

// locationJoin attaches the linked location to happenings. At most one row per happening.
func locationJoin() JoinClause {
	return JoinClause{
		Type:  JoinLeftOuter,
		Table: TableLocations,
		On:    ColEq(Col(TableLocations, "id"), Col(TableHappenings, "location_id")),
	}
}

func tagMatch(keyword string) Predicate {
	return Eq(Lower(tagName), strings.ToLower(keyword))
}

// assembleLocationMatch matches the whole query text inside title or description, or any
// keyword exactly against a tag name. The text is used verbatim; the store's LIKE is
// case-insensitive.
func assembleLocationMatch(text string, keywords []string) Predicate {
	terms := make([]Predicate, 0, 2+len(keywords))
	terms = append(terms,
		Contains(Plain(locationTitle), text),
		Contains(Plain(locationDescription), text),
	)
	for _, kw := range keywords {
		terms = append(terms, tagMatch(kw))
	}
	return Any(terms...)
}

// assembleHappeningMatch matches each keyword inside title, description or url, or exactly
// against a tag name. With no keywords it degrades to the substring clauses against an empty
// term.
func assembleHappeningMatch(keywords []string) Predicate {
	if len(keywords) == 0 {
		return Any(happeningTextMatch("")...)
	}
	terms := make([]Predicate, 0, 4*len(keywords))
	for _, kw := range keywords {
		terms = append(terms, happeningTextMatch(kw)...)
		terms = append(terms, tagMatch(kw))
	}
	return Any(terms...)
}

func happeningTextMatch(keyword string) []Predicate {
	return []Predicate{
		Contains(Lower(happeningTitle), keyword),
		Contains(Lower(happeningDesc), keyword),
		Contains(Lower(happeningURL), keyword),
	}
}
