package assessment

import "github.com/pkg/errors"

// Category is the performance level of a student, in ascending order BB < MB < BSH < BSB.
type Category string

const (
	BB  Category = "BB"  // Belum Berkembang
	MB  Category = "MB"  // Mulai Berkembang
	BSH Category = "BSH" // Berkembang Sesuai Harapan
	BSB Category = "BSB" // Berkembang Sangat Baik
)

// Categories lists every valid Category in ascending order.
var Categories = []Category{BB, MB, BSH, BSB}

var descriptions = map[Category]string{
	BB:  "Belum Berkembang",
	MB:  "Mulai Berkembang",
	BSH: "Berkembang Sesuai Harapan",
	BSB: "Berkembang Sangat Baik",
}

type InvalidCategoryError struct {
	Value string
}

func (e *InvalidCategoryError) Error() string {
	return "invalid category " + `"` + e.Value + `"`
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", errors.WithStack(&InvalidCategoryError{Value: s})
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := descriptions[c]
	return ok
}

// Rank is the position of c in Categories, -1 if c is not valid.
func (c Category) Rank() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return -1
}

func (c Category) Description() string { return descriptions[c] }

func (c Category) String() string { return string(c) }
