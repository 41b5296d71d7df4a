package all

import (
	// Import all the engines so they register themselves
	_ "github.com/darianmavgo/mkcsv/converters/sqlite"
)
