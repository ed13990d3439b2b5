package mbtiles

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/cartovault/mbtiles-db/pkg/geo"
)

// Metadata reads and writes the archive's metadata table. Metadata is
// diagnostic: write and read failures are logged and swallowed so a failed
// metadata row never fails an otherwise-successful build.
type Metadata struct {
	db  *sql.DB
	log zerolog.Logger
}

// Set stores one metadata row. A nil value is skipped silently; everything
// else is stored in its string form. Each key is write-once per session:
// a duplicate insert faults against the table's unique index and is logged.
func (m *Metadata) Set(name string, value any) *Metadata {
	if value == nil {
		return m
	}
	str := fmt.Sprint(value)
	m.log.Debug().Str("name", name).Str("value", str).Msg("set metadata")
	_, err := m.db.Exec(
		"INSERT INTO "+metadataTable+" ("+metadataColName+","+metadataColValue+") VALUES (?, ?)",
		name, str)
	if err != nil {
		m.log.Error().Err(err).Str("name", name).Str("value", str).Msg("error setting metadata")
	}
	return m
}

// SetName sets the human-readable tileset name.
func (m *Metadata) SetName(value string) *Metadata {
	return m.Set("name", value)
}

// SetFormat sets the tile data format; vector tilesets always use "pbf".
func (m *Metadata) SetFormat(value string) *Metadata {
	return m.Set("format", value)
}

// SetBounds stores the tileset envelope as "left,bottom,right,top".
func (m *Metadata) SetBounds(b orb.Bound) *Metadata {
	return m.Set("bounds", joinFloats(b.Min[0], b.Min[1], b.Max[0], b.Max[1]))
}

// SetCenter stores an explicit map center as "longitude,latitude,zoom".
func (m *Metadata) SetCenter(lon, lat, zoom float64) *Metadata {
	return m.Set("center", joinFloats(lon, lat, zoom))
}

// SetCenterFromBounds estimates a reasonable center: the envelope midpoint
// at the smallest integer zoom that covers the envelope.
func (m *Metadata) SetCenterFromBounds(b orb.Bound) *Metadata {
	center := b.Center()
	return m.SetCenter(center[0], center[1], float64(geo.CenterZoom(b)))
}

// SetBoundsAndCenter sets both bounds and the derived center.
func (m *Metadata) SetBoundsAndCenter(b orb.Bound) *Metadata {
	return m.SetBounds(b).SetCenterFromBounds(b)
}

// SetMinzoom sets the lowest zoom level present in the tileset.
func (m *Metadata) SetMinzoom(value int) *Metadata {
	return m.Set("minzoom", value)
}

// SetMaxzoom sets the highest zoom level present in the tileset.
func (m *Metadata) SetMaxzoom(value int) *Metadata {
	return m.Set("maxzoom", value)
}

// SetAttribution sets the attribution string shown with the map.
func (m *Metadata) SetAttribution(value string) *Metadata {
	return m.Set("attribution", value)
}

// SetDescription sets the tileset description.
func (m *Metadata) SetDescription(value string) *Metadata {
	return m.Set("description", value)
}

// SetType sets the tileset type: "overlay" or "baselayer".
func (m *Metadata) SetType(value string) *Metadata {
	return m.Set("type", value)
}

// SetTypeIsOverlay marks the tileset as an overlay.
func (m *Metadata) SetTypeIsOverlay() *Metadata {
	return m.SetType("overlay")
}

// SetTypeIsBaselayer marks the tileset as a base layer.
func (m *Metadata) SetTypeIsBaselayer() *Metadata {
	return m.SetType("baselayer")
}

// SetVersion sets the tileset revision.
func (m *Metadata) SetVersion(value string) *Metadata {
	return m.Set("version", value)
}

// SetJSON stores the structured vector-layer description under the "json" key.
func (m *Metadata) SetJSON(value MetadataJSON) *Metadata {
	encoded, err := value.JSON()
	if err != nil {
		m.log.Error().Err(err).Msg("error encoding metadata json")
		return m
	}
	return m.Set("json", encoded)
}

// GetAll returns every metadata row. A read failure is logged and yields an
// empty map: metadata is diagnostic, not essential to a successful write.
func (m *Metadata) GetAll() map[string]string {
	result := make(map[string]string)
	rows, err := m.db.Query(
		"SELECT " + metadataColName + ", " + metadataColValue + " FROM " + metadataTable +
			" ORDER BY " + metadataColName)
	if err != nil {
		m.log.Warn().Err(err).Msg("error retrieving metadata")
		return result
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			m.log.Warn().Err(err).Msg("error scanning metadata row")
			return result
		}
		result[name] = value
	}
	if err := rows.Err(); err != nil {
		m.log.Warn().Err(err).Msg("error retrieving metadata")
	}
	return result
}

// joinFloats renders floats as a comma-joined list with at most 5 fractional
// digits and a locale-independent decimal point.
func joinFloats(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		s := strconv.FormatFloat(v, 'f', 5, 64)
		if strings.Contains(s, ".") {
			s = strings.TrimRight(s, "0")
			s = strings.TrimSuffix(s, ".")
		}
		parts[i] = s
	}
	return strings.Join(parts, ",")
}

// FieldType is the declared type of one vector-layer attribute in the
// metadata JSON: "Number", "Boolean" or "String".
type FieldType string

const (
	FieldTypeNumber  FieldType = "Number"
	FieldTypeBoolean FieldType = "Boolean"
	FieldTypeString  FieldType = "String"
)

// MergeFieldTypes combines two observations of the same field. Attributes
// whose type varies between features must be reported as String.
func MergeFieldTypes(oldType, newType FieldType) FieldType {
	if oldType != newType {
		return FieldTypeString
	}
	return newType
}

// VectorLayer describes one layer's attribute schema and zoom range.
// Absent optional fields are omitted from the serialized JSON entirely.
type VectorLayer struct {
	ID          string               `json:"id"`
	Fields      map[string]FieldType `json:"fields"`
	Description string               `json:"description,omitempty"`
	Minzoom     *int                 `json:"minzoom,omitempty"`
	Maxzoom     *int                 `json:"maxzoom,omitempty"`
}

// NewVectorLayer returns a layer with no fields yet.
func NewVectorLayer(id string) VectorLayer {
	return VectorLayer{ID: id, Fields: make(map[string]FieldType)}
}

// WithField returns a copy of the layer with one field observation merged
// in: a repeated field keeps its type only if both observations agree.
func (l VectorLayer) WithField(name string, fieldType FieldType) VectorLayer {
	fields := make(map[string]FieldType, len(l.Fields)+1)
	for k, v := range l.Fields {
		fields[k] = v
	}
	if existing, ok := fields[name]; ok {
		fields[name] = MergeFieldTypes(existing, fieldType)
	} else {
		fields[name] = fieldType
	}
	l.Fields = fields
	return l
}

// WithDescription returns a copy of the layer with the description set.
func (l VectorLayer) WithDescription(description string) VectorLayer {
	l.Description = description
	return l
}

// WithMinzoom returns a copy of the layer with the minimum zoom set.
func (l VectorLayer) WithMinzoom(minzoom int) VectorLayer {
	l.Minzoom = &minzoom
	return l
}

// WithMaxzoom returns a copy of the layer with the maximum zoom set.
func (l VectorLayer) WithMaxzoom(maxzoom int) VectorLayer {
	l.Maxzoom = &maxzoom
	return l
}

// MetadataJSON is the structured value of the "json" metadata row.
// https://github.com/mapbox/mbtiles-spec/blob/master/1.3/spec.md#vector-tileset-metadata
type MetadataJSON struct {
	VectorLayers []VectorLayer `json:"vector_layers"`
}

// ParseMetadataJSON decodes the "json" metadata value.
func ParseMetadataJSON(encoded string) (MetadataJSON, error) {
	var m MetadataJSON
	if err := json.Unmarshal([]byte(encoded), &m); err != nil {
		return MetadataJSON{}, fmt.Errorf("invalid metadata json: %w", err)
	}
	return m, nil
}

// JSON encodes the value for storage in the metadata table.
func (m MetadataJSON) JSON() (string, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata json: %w", err)
	}
	return string(encoded), nil
}
