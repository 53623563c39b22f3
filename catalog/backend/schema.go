package backend

// ContentTables are the tables that make a catalog non-empty.
var ContentTables = []string{
	"Directories",
	"Files",
	"Coordinates",
	"Variables",
}
