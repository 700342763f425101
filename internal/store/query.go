package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// rows is the cursor surface shared by pgx.Rows and *sql.Rows.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

type queryFunc func(ctx context.Context, sql string, args ...any) (rows, error)

// placeholder renders the n-th (1-based) bind parameter for a driver.
type placeholder func(n int) string

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func question(int) string { return "?" }

// reader implements the read queries once for every backend.
type reader struct {
	query queryFunc
	ph    placeholder
}

// whereBuilder accumulates AND-ed conditions and their bind arguments.
type whereBuilder struct {
	ph    placeholder
	conds []string
	args  []any
}

func (w *whereBuilder) eq(column string, v any) {
	w.args = append(w.args, v)
	w.conds = append(w.conds, fmt.Sprintf("%s = %s", column, w.ph(len(w.args))))
}

// optional matches v exactly, or NULL-or-empty when v is unset.
func (w *whereBuilder) optional(column, v string) {
	if v == "" {
		w.conds = append(w.conds, fmt.Sprintf("(%s IS NULL OR %s = '')", column, column))
		return
	}
	w.eq(column, v)
}

// in adds a case-insensitive membership test; names are lowered here.
func (w *whereBuilder) in(column string, names []string) {
	marks := make([]string, 0, len(names))
	for _, n := range names {
		w.args = append(w.args, normalizeName(n))
		marks = append(marks, w.ph(len(w.args)))
	}
	w.conds = append(w.conds, fmt.Sprintf("LOWER(%s) IN (%s)", column, strings.Join(marks, ", ")))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

const observationColumns = `nombre_indicador, valor_calculado, COALESCE(unidad, ''), pais, periodo,
	COALESCE(provincia, ''), COALESCE(sector, ''), COALESCE(tamano_empresa, '')`

func buildObservationQuery(q ObservationQuery, ph placeholder) (string, []any) {
	w := &whereBuilder{ph: ph}
	w.eq("pais", q.Region)
	w.eq("periodo", q.Period)
	w.optional("provincia", q.Province)
	w.optional("sector", q.Sector)
	w.optional("tamano_empresa", q.Size)
	if len(q.Indicators) > 0 {
		w.in("nombre_indicador", q.Indicators)
	}
	sql := `SELECT ` + observationColumns + ` FROM resultado_indicadores` + w.String() +
		` ORDER BY nombre_indicador, valor_calculado`
	return sql, w.args
}

func (r reader) fetchObservations(ctx context.Context, q ObservationQuery) ([]Observation, error) {
	sql, args := buildObservationQuery(q, r.ph)
	rs, err := r.query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "query observations")
	}
	defer rs.Close()

	out := []Observation{}
	for rs.Next() {
		var o Observation
		if err := rs.Scan(&o.Indicator, &o.Value, &o.Unit, &o.Region, &o.Period,
			&o.Province, &o.Sector, &o.Size); err != nil {
			return nil, eris.Wrap(err, "scan observation")
		}
		out = append(out, o)
	}
	if err := rs.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate observations")
	}
	return out, nil
}

func (r reader) fetchHierarchy(ctx context.Context, indicatorNames []string) (*Hierarchy, error) {
	h := &Hierarchy{
		Subdimensions: []SubdimensionDefinition{},
		Dimensions:    []DimensionDefinition{},
	}
	var err error

	h.Indicators, err = r.fetchIndicators(ctx, indicatorNames)
	if err != nil {
		return nil, err
	}

	if len(indicatorNames) == 0 {
		if h.Subdimensions, err = r.fetchSubdimensions(ctx, nil); err != nil {
			return nil, err
		}
		if h.Dimensions, err = r.fetchDimensions(ctx, nil); err != nil {
			return nil, err
		}
		return h, nil
	}

	// Filtered lookup: follow the references level by level and stop as
	// soon as nothing is left to resolve.
	subNames := uniqueNames(len(h.Indicators), func(i int) string { return h.Indicators[i].Subdimension })
	if len(subNames) == 0 {
		return h, nil
	}
	if h.Subdimensions, err = r.fetchSubdimensions(ctx, subNames); err != nil {
		return nil, err
	}

	dimNames := uniqueNames(len(h.Subdimensions), func(i int) string { return h.Subdimensions[i].Dimension })
	if len(dimNames) == 0 {
		return h, nil
	}
	if h.Dimensions, err = r.fetchDimensions(ctx, dimNames); err != nil {
		return nil, err
	}
	return h, nil
}

func (r reader) fetchIndicators(ctx context.Context, names []string) ([]IndicatorDefinition, error) {
	w := &whereBuilder{ph: r.ph}
	if len(names) > 0 {
		w.in("nombre", names)
	}
	rs, err := r.query(ctx, `SELECT nombre, COALESCE(nombre_subdimension, ''), COALESCE(importancia, ''),
		COALESCE(formula, ''), COALESCE(fuente, ''), COALESCE(origen_indicador, '')
		FROM definicion_indicadores`+w.String()+` ORDER BY nombre`, w.args...)
	if err != nil {
		return nil, eris.Wrap(err, "query indicator definitions")
	}
	defer rs.Close()

	out := []IndicatorDefinition{}
	for rs.Next() {
		var d IndicatorDefinition
		if err := rs.Scan(&d.Name, &d.Subdimension, &d.Importance, &d.Formula, &d.Source, &d.Origin); err != nil {
			return nil, eris.Wrap(err, "scan indicator definition")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rs.Err(), "iterate indicator definitions")
}

func (r reader) fetchSubdimensions(ctx context.Context, names []string) ([]SubdimensionDefinition, error) {
	w := &whereBuilder{ph: r.ph}
	if len(names) > 0 {
		w.in("nombre", names)
	}
	rs, err := r.query(ctx, `SELECT nombre, COALESCE(nombre_dimension, ''), COALESCE(peso, 0)
		FROM subdimensiones`+w.String()+` ORDER BY nombre`, w.args...)
	if err != nil {
		return nil, eris.Wrap(err, "query subdimensions")
	}
	defer rs.Close()

	out := []SubdimensionDefinition{}
	for rs.Next() {
		var d SubdimensionDefinition
		if err := rs.Scan(&d.Name, &d.Dimension, &d.Weight); err != nil {
			return nil, eris.Wrap(err, "scan subdimension")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rs.Err(), "iterate subdimensions")
}

func (r reader) fetchDimensions(ctx context.Context, names []string) ([]DimensionDefinition, error) {
	w := &whereBuilder{ph: r.ph}
	if len(names) > 0 {
		w.in("nombre", names)
	}
	rs, err := r.query(ctx, `SELECT nombre, COALESCE(peso, 0)
		FROM dimensiones`+w.String()+` ORDER BY nombre`, w.args...)
	if err != nil {
		return nil, eris.Wrap(err, "query dimensions")
	}
	defer rs.Close()

	out := []DimensionDefinition{}
	for rs.Next() {
		var d DimensionDefinition
		if err := rs.Scan(&d.Name, &d.WeightPct); err != nil {
			return nil, eris.Wrap(err, "scan dimension")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rs.Err(), "iterate dimensions")
}

func uniqueNames(n int, at func(i int) string) []string {
	seen := make(map[string]bool, n)
	var out []string
	for i := 0; i < n; i++ {
		name := at(i)
		key := normalizeName(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
