package repositories

import (
	"fmt"
	"strings"
	"time"
)

// sqlDialect maps predicate fields to columns and encodes arguments for a
// concrete database. Placeholders are always "?"; GORM and sqlx.Rebind
// translate them.
type sqlDialect struct {
	prefix  string
	timeArg func(time.Time) any
	boolArg func(bool) any
}

var messageColumns = map[Field]string{
	FieldIsGroup:   "is_group",
	FieldGroupID:   "group_id",
	FieldGroupName: "group_name",
	FieldTo:        "to_jid",
	FieldFrom:      "from_jid",
	FieldTimestamp: "ts",
	FieldCreatedAt: "created_at",
}

var postgresDialect = sqlDialect{
	timeArg: func(t time.Time) any { return t.UTC() },
	boolArg: func(b bool) any { return b },
}

// sqliteDialect stores instants as unix milliseconds and booleans as 0/1.
var sqliteDialect = sqlDialect{
	prefix:  "m.",
	timeArg: func(t time.Time) any { return t.UTC().UnixMilli() },
	boolArg: func(b bool) any {
		if b {
			return int64(1)
		}
		return int64(0)
	},
}

// orderExpr sorts by the row's effective time.
func (d sqlDialect) orderExpr() string {
	return fmt.Sprintf("COALESCE(%sts, %screated_at) DESC", d.prefix, d.prefix)
}

func (d sqlDialect) column(f Field) string {
	return d.prefix + messageColumns[f]
}

// compileSQL renders a validated predicate as a WHERE fragment.
func compileSQL(p Predicate, d sqlDialect) (string, []any, error) {
	if err := p.Validate(); err != nil {
		return "", nil, err
	}
	var args []any
	sql := d.render(p, &args)
	return sql, args, nil
}

func (d sqlDialect) render(p Predicate, args *[]any) string {
	switch p.Op {
	case OpAnd, OpOr:
		joiner := " AND "
		if p.Op == OpOr {
			joiner = " OR "
		}
		parts := make([]string, 0, len(p.Children))
		for _, c := range p.Children {
			parts = append(parts, d.render(c, args))
		}
		return "(" + strings.Join(parts, joiner) + ")"
	case OpEq:
		if p.Field == FieldIsGroup {
			*args = append(*args, d.boolArg(p.Value.(bool)))
		} else {
			*args = append(*args, p.Value)
		}
		return d.column(p.Field) + " = ?"
	case OpContains:
		*args = append(*args, "%"+escapeLike(p.Value.(string))+"%")
		return d.column(p.Field) + ` LIKE ? ESCAPE '\'`
	case OpContainsFold:
		*args = append(*args, "%"+escapeLike(strings.ToLower(p.Value.(string)))+"%")
		return "LOWER(" + d.column(p.Field) + `) LIKE ? ESCAPE '\'`
	case OpWithin:
		*args = append(*args, d.timeArg(p.Start), d.timeArg(p.End))
		col := d.column(p.Field)
		return "(" + col + " >= ? AND " + col + " < ?)"
	}
	return "1=0"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
