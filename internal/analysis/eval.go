package analysis

import (
	"fmt"
	"sort"
)

// resultVar is the output slot the submitted query must assign.
const resultVar = "result"

// evaluate runs parsed statements against the table snapshot. Returns nil
// when the query never assigned the result slot.
func evaluate(stmts []statement, df *tableVal) (value, error) {
	env := map[string]value{"df": df}
	for _, s := range stmts {
		v, err := evalExpr(s.expr, env)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		env[s.name] = v
	}
	res, ok := env[resultVar]
	if !ok {
		return nil, nil
	}
	return res, nil
}

func evalExpr(e expression, env map[string]value) (value, error) {
	switch ex := e.(type) {
	case numberExpr:
		return numberVal(ex.val), nil
	case stringExpr:
		return stringVal(ex.val), nil
	case identExpr:
		v, ok := env[ex.name]
		if !ok {
			return nil, fmt.Errorf("unknown variable %q", ex.name)
		}
		return v, nil
	case pipelineExpr:
		v, err := evalExpr(ex.source, env)
		if err != nil {
			return nil, err
		}
		for _, stage := range ex.stages {
			v, err = applyStage(v, stage)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", stage.name, err)
			}
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported expression")
	}
}

func applyStage(v value, call stageCall) (value, error) {
	switch call.name {
	case "filter":
		return stageFilter(v, call)
	case "group", "group_by":
		return stageGroup(v, call)
	case "sum", "mean", "avg", "min", "max":
		return stageAggregate(v, call)
	case "count":
		return stageCount(v, call)
	case "sort", "sort_by":
		return stageSort(v, call)
	case "top", "limit", "head":
		return stageLimit(v, call)
	case "select":
		return stageSelect(v, call)
	default:
		return nil, fmt.Errorf("unknown stage %q", call.name)
	}
}

func wantTable(v value) (*tableVal, error) {
	t, ok := v.(*tableVal)
	if !ok {
		return nil, fmt.Errorf("expected a table, got %s", v.valueKind())
	}
	return t, nil
}

func stageFilter(v value, call stageCall) (value, error) {
	t, err := wantTable(v)
	if err != nil {
		return nil, err
	}
	if len(call.args) != 1 || call.args[0].cmp == nil {
		return nil, fmt.Errorf("want a single comparison, e.g. filter(date == \"2024-01-01\")")
	}
	cmp := call.args[0].cmp
	idx := t.colIndex(cmp.col)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q", cmp.col)
	}

	out := &tableVal{cols: t.cols}
	for _, row := range t.rows {
		ok, err := compareCell(row[idx], cmp.op, cmp.lit)
		if err != nil {
			return nil, err
		}
		if ok {
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

func compareCell(cell any, op string, lit expression) (bool, error) {
	switch l := lit.(type) {
	case numberExpr:
		n, ok := cell.(float64)
		if !ok {
			return false, fmt.Errorf("cannot compare text column to a number")
		}
		return compareFloats(n, op, l.val)
	case stringExpr:
		s, ok := cell.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare numeric column to a string")
		}
		return compareStrings(s, op, l.val)
	default:
		return false, fmt.Errorf("unsupported comparison")
	}
}

func compareFloats(a float64, op string, b float64) (bool, error) {
	switch op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

func compareStrings(a, op, b string) (bool, error) {
	switch op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

func stageGroup(v value, call stageCall) (value, error) {
	t, err := wantTable(v)
	if err != nil {
		return nil, err
	}
	col, err := singleColumnArg(call)
	if err != nil {
		return nil, err
	}
	idx := t.colIndex(col)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q", col)
	}

	byKey := make(map[any][]int)
	var keys []any
	for i, row := range t.rows {
		k := row[idx]
		if _, seen := byKey[k]; !seen {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], i)
	}
	sortCells(keys)

	g := &groupedVal{keyCol: col, base: t, keys: keys}
	for _, k := range keys {
		g.groups = append(g.groups, byKey[k])
	}
	return g, nil
}

func stageAggregate(v value, call stageCall) (value, error) {
	col, err := singleColumnArg(call)
	if err != nil {
		return nil, err
	}
	name := call.name
	if name == "avg" {
		name = "mean"
	}

	switch val := v.(type) {
	case *tableVal:
		idx := val.colIndex(col)
		if idx < 0 {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		n, err := aggregateRows(val, rowIndexes(len(val.rows)), idx, name)
		if err != nil {
			return nil, err
		}
		return numberVal(n), nil
	case *groupedVal:
		idx := val.base.colIndex(col)
		if idx < 0 {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		out := &tableVal{cols: []string{val.keyCol, name + "_" + col}}
		for i, key := range val.keys {
			n, err := aggregateRows(val.base, val.groups[i], idx, name)
			if err != nil {
				return nil, err
			}
			out.rows = append(out.rows, []any{key, n})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a table or grouped table, got %s", v.valueKind())
	}
}

func aggregateRows(t *tableVal, idxs []int, col int, agg string) (float64, error) {
	var sum, minV, maxV float64
	n := 0
	for _, i := range idxs {
		f, ok := t.rows[i][col].(float64)
		if !ok {
			return 0, fmt.Errorf("column %q is not numeric", t.cols[col])
		}
		if n == 0 {
			minV, maxV = f, f
		}
		sum += f
		if f < minV {
			minV = f
		}
		if f > maxV {
			maxV = f
		}
		n++
	}
	switch agg {
	case "sum":
		return sum, nil
	case "mean":
		if n == 0 {
			return 0, nil
		}
		return sum / float64(n), nil
	case "min":
		return minV, nil
	case "max":
		return maxV, nil
	}
	return 0, fmt.Errorf("unknown aggregate %q", agg)
}

func stageCount(v value, call stageCall) (value, error) {
	if len(call.args) != 0 {
		return nil, fmt.Errorf("count() takes no arguments")
	}
	switch val := v.(type) {
	case *tableVal:
		return numberVal(len(val.rows)), nil
	case *groupedVal:
		out := &tableVal{cols: []string{val.keyCol, "count"}}
		for i, key := range val.keys {
			out.rows = append(out.rows, []any{key, float64(len(val.groups[i]))})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a table or grouped table, got %s", v.valueKind())
	}
}

func stageSort(v value, call stageCall) (value, error) {
	t, err := wantTable(v)
	if err != nil {
		return nil, err
	}
	if len(call.args) < 1 || len(call.args) > 2 {
		return nil, fmt.Errorf("want sort(column) or sort(column, desc)")
	}
	col, err := columnArg(call.args[0])
	if err != nil {
		return nil, err
	}
	desc := false
	if len(call.args) == 2 {
		dir, err := columnArg(call.args[1])
		if err != nil || (dir != "asc" && dir != "desc") {
			return nil, fmt.Errorf("sort direction must be asc or desc")
		}
		desc = dir == "desc"
	}
	idx := t.colIndex(col)
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q", col)
	}

	out := &tableVal{cols: t.cols, rows: make([][]any, len(t.rows))}
	copy(out.rows, t.rows)
	sort.SliceStable(out.rows, func(i, j int) bool {
		less := cellLess(out.rows[i][idx], out.rows[j][idx])
		if desc {
			return cellLess(out.rows[j][idx], out.rows[i][idx])
		}
		return less
	})
	return out, nil
}

func stageLimit(v value, call stageCall) (value, error) {
	t, err := wantTable(v)
	if err != nil {
		return nil, err
	}
	if len(call.args) != 1 || call.args[0].cmp != nil {
		return nil, fmt.Errorf("want a row count, e.g. top(5)")
	}
	n, ok := call.args[0].expr.(numberExpr)
	if !ok || n.val < 0 {
		return nil, fmt.Errorf("want a non-negative row count")
	}
	limit := int(n.val)
	if limit > len(t.rows) {
		limit = len(t.rows)
	}
	return &tableVal{cols: t.cols, rows: t.rows[:limit]}, nil
}

func stageSelect(v value, call stageCall) (value, error) {
	t, err := wantTable(v)
	if err != nil {
		return nil, err
	}
	if len(call.args) == 0 {
		return nil, fmt.Errorf("want at least one column")
	}
	var idxs []int
	var cols []string
	for _, a := range call.args {
		col, err := columnArg(a)
		if err != nil {
			return nil, err
		}
		idx := t.colIndex(col)
		if idx < 0 {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		idxs = append(idxs, idx)
		cols = append(cols, col)
	}

	out := &tableVal{cols: cols}
	for _, row := range t.rows {
		projected := make([]any, len(idxs))
		for i, idx := range idxs {
			projected[i] = row[idx]
		}
		out.rows = append(out.rows, projected)
	}
	return out, nil
}

func singleColumnArg(call stageCall) (string, error) {
	if len(call.args) != 1 {
		return "", fmt.Errorf("want a single column name")
	}
	return columnArg(call.args[0])
}

func columnArg(a stageArg) (string, error) {
	if a.cmp != nil {
		return "", fmt.Errorf("unexpected comparison")
	}
	id, ok := a.expr.(identExpr)
	if !ok {
		return "", fmt.Errorf("want a column name")
	}
	return id.name, nil
}

func rowIndexes(n int) []int {
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}
	return idxs
}

func sortCells(cells []any) {
	sort.SliceStable(cells, func(i, j int) bool { return cellLess(cells[i], cells[j]) })
}

func cellLess(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av < bv
	case string:
		bv, ok := b.(string)
		return ok && av < bv
	}
	return false
}
