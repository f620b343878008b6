package normalize

// Category is the sub-record a raw-state key is projected into.
type Category int

const (
	// CategoryMisc is the default: the key is kept verbatim under misc_data.raw_state_data.
	CategoryMisc Category = iota
	CategoryOdometer
	CategoryEngine
	CategoryFuel
	CategoryState
	CategoryVIN
	// CategoryIgnored marks keys that duplicate location sub-fields.
	CategoryIgnored
)

func (c Category) String() string {
	switch c {
	case CategoryOdometer:
		return "odometer"
	case CategoryEngine:
		return "engine"
	case CategoryFuel:
		return "fuel"
	case CategoryState:
		return "state"
	case CategoryVIN:
		return "vin"
	case CategoryIgnored:
		return "ignored"
	default:
		return "misc"
	}
}

// Placement says where a classified key lands: the sub-record and the field name inside it.
type Placement struct {
	Category Category
	Field    string
}

// rawStateKeys maps vendor raw-state codes to their placement.
// Keys missing from this table fall through to the misc bucket.
var rawStateKeys = map[string]Placement{
	"16":  {CategoryOdometer, "total_distance"},
	"66":  {CategoryEngine, "voltage_66"},
	"67":  {CategoryEngine, "voltage_67"},
	"68":  {CategoryEngine, "battery_current"},
	"113": {CategoryFuel, "level_percentage"},
	"21":  {CategoryState, "ignition_state"},
	"239": {CategoryState, "state_239"},
	"240": {CategoryState, "state_240"},
	"241": {CategoryState, "state_241"},
	"256": {CategoryVIN, "vin"},
	"389": {CategoryOdometer, "total_distance_alt"},
	"390": {CategoryOdometer, "trip_distance"},

	// Location duplicates; projected through Location instead.
	"sp":     {Category: CategoryIgnored},
	"alt":    {Category: CategoryIgnored},
	"ang":    {Category: CategoryIgnored},
	"sat":    {Category: CategoryIgnored},
	"latlng": {Category: CategoryIgnored},
	"ts":     {Category: CategoryIgnored},
	"evt":    {Category: CategoryIgnored},
	"pr":     {Category: CategoryIgnored},
}

// Classify returns the placement of a raw-state key. Unknown keys map to CategoryMisc
// with the key itself as field name.
func Classify(key string) Placement {
	if p, ok := rawStateKeys[key]; ok {
		return p
	}
	return Placement{Category: CategoryMisc, Field: key}
}
