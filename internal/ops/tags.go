package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/fetchnfeed/internal/dataset"
	"github.com/hpungsan/fetchnfeed/internal/errors"
	"github.com/hpungsan/fetchnfeed/internal/model"
)

// DefaultTagColor is used for tags created implicitly by tagging.
const DefaultTagColor = "#808080"

// AddTagInput contains parameters for the AddTag operation.
type AddTagInput struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// TagOutput contains the result of the AddTag operation.
type TagOutput struct {
	Tag model.Tag `json:"tag"`

	// Created is false when an existing tag matched the name
	Created   bool `json:"created"`
	Persisted bool `json:"persisted"`
}

// AddTag creates a tag. When a tag with the same name (ignoring case)
// exists, it is returned unchanged and its color is not overwritten.
func AddTag(ctx context.Context, ds *dataset.Dataset, input AddTagInput) (*TagOutput, error) {
	name, err := requireID("name", input.Name)
	if err != nil {
		return nil, err
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = DefaultTagColor
	}

	out := &TagOutput{}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		tags := tx.Data().Tags
		if i := findTagByName(tags, name); i >= 0 {
			out.Tag = tags[i]
			return nil
		}
		out.Tag = model.Tag{ID: model.NewID(), Name: name, Color: color}
		out.Created = true
		tx.SetTags(appendCopy(tags, out.Tag))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTagOutput contains the result of the DeleteTag operation.
type DeleteTagOutput struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	FeedsUpdated    int    `json:"feeds_updated"`
	ArticlesUpdated int    `json:"articles_updated"`
	Persisted       bool   `json:"persisted"`
}

// DeleteTag removes a tag and strips its name from every feed and article
// in the same transaction.
func DeleteTag(ctx context.Context, ds *dataset.Dataset, id string) (*DeleteTagOutput, error) {
	id, err := requireID("id", id)
	if err != nil {
		return nil, err
	}

	out := &DeleteTagOutput{ID: id}
	out.Persisted, err = ds.Update(ctx, func(tx *dataset.Tx) error {
		data := tx.Data()
		i := -1
		for j := range data.Tags {
			if data.Tags[j].ID == id {
				i = j
				break
			}
		}
		if i < 0 {
			return errors.NewNotFound("tag", id)
		}
		name := data.Tags[i].Name
		out.Name = name

		tags, _ := removeWhere(data.Tags, func(t *model.Tag) bool { return t.ID == id })
		tx.SetTags(tags)

		feeds := make([]model.Feed, len(data.Feeds))
		for j, f := range data.Feeds {
			if model.ContainsString(f.Tags, name) {
				f.Tags = model.RemoveFromSet(f.Tags, name)
				out.FeedsUpdated++
			}
			feeds[j] = f
		}
		if out.FeedsUpdated > 0 {
			tx.SetFeeds(feeds)
		}

		articles := make([]model.Article, len(data.Articles))
		for j, a := range data.Articles {
			if model.ContainsString(a.Tags, name) {
				a.Tags = model.RemoveFromSet(a.Tags, name)
				out.ArticlesUpdated++
			}
			articles[j] = a
		}
		if out.ArticlesUpdated > 0 {
			tx.SetArticles(articles)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTags returns every tag in creation order.
func ListTags(ds *dataset.Dataset) []model.Tag {
	return filter(ds.Get().Tags, func(*model.Tag) bool { return true })
}

// findTagByName returns the index of the tag matching name ignoring case, or -1.
func findTagByName(tags []model.Tag, name string) int {
	for i := range tags {
		if strings.EqualFold(tags[i].Name, name) {
			return i
		}
	}
	return -1
}

// ensureTag returns the stored spelling of name, creating the tag inside tx
// when none matches.
func ensureTag(tx *dataset.Tx, name string) string {
	tags := tx.Data().Tags
	if i := findTagByName(tags, name); i >= 0 {
		return tags[i].Name
	}
	tx.SetTags(appendCopy(tags, model.Tag{ID: model.NewID(), Name: name, Color: DefaultTagColor}))
	return name
}
