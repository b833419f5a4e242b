package catalog

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrUnknownField = errors.New("unknown field")

type op int

const (
	opEq op = iota
	opIn
	opSearch
	opOrder
	opPage
)

// Filter narrows, sorts or pages a List/Count query.
// Field names are checked against the collection whitelist before reaching SQL.
type Filter struct {
	op    op
	field string
	value interface{}
	desc  bool
	page  int
	size  int
}

// Eq matches documents whose field equals v
func Eq(field string, v interface{}) Filter {
	return Filter{op: opEq, field: field, value: v}
}

// In matches documents whose field is one of values.
// An empty list matches nothing.
func In(field string, values []string) Filter {
	return Filter{op: opIn, field: field, value: values}
}

// Search is a case-insensitive contains match; blank text is ignored
func Search(field, text string) Filter {
	return Filter{op: opSearch, field: field, value: strings.TrimSpace(text)}
}

func OrderBy(field string, desc bool) Filter {
	return Filter{op: opOrder, field: field, desc: desc}
}

// Page limits the result to one page, pages start at 1
func Page(page, size int) Filter {
	if page < 1 {
		page = 1
	}
	return Filter{op: opPage, page: page, size: size}
}

func apply(db *gorm.DB, fields map[string]struct{}, filters []Filter, withPaging bool) (*gorm.DB, error) {
	for _, f := range filters {
		if f.op != opPage {
			if _, ok := fields[f.field]; !ok {
				return nil, errors.Wrapf(ErrUnknownField, "%q", f.field)
			}
		}
		switch f.op {
		case opEq:
			db = db.Where(f.field+" = ?", f.value)
		case opIn:
			ids, _ := f.value.([]string)
			if len(ids) == 0 {
				db = db.Where("1 = 0")
				continue
			}
			db = db.Where(f.field+" IN ?", ids)
		case opSearch:
			q, _ := f.value.(string)
			if q == "" {
				continue
			}
			if strings.EqualFold(db.Name(), "postgres") {
				db = db.Where(f.field+" ILIKE ?", "%"+q+"%")
			} else {
				db = db.Where("LOWER("+f.field+") LIKE ?", "%"+strings.ToLower(q)+"%")
			}
		case opOrder:
			if !withPaging {
				continue
			}
			dir := " ASC"
			if f.desc {
				dir = " DESC"
			}
			db = db.Order(f.field + dir)
		case opPage:
			if !withPaging || f.size <= 0 {
				continue
			}
			db = db.Offset((f.page - 1) * f.size).Limit(f.size)
		}
	}
	return db, nil
}
