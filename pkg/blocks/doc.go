// Package blocks walks and classifies the block hierarchy of a controller program.
//
// The hierarchy reported by an engineering environment is heterogeneous: a
// group may hold blocks, child groups, both or neither, and a block may lack
// a name or a number. Accessor turns every missing capability into a neutral
// default, Walker traverses the tree in a deterministic pre-order (a group's
// blocks before its subgroups), and ListingService filters the traversal by
// category.
//
//	dbs := blocks.DataUnitListing(blocks.WithTelemetry(tel))
//	units := dbs.List(ctx, program.Root)
//	_ = dbs.Print(os.Stdout, units, blocks.FormatText)
//
// Classification is a substring heuristic on the uppercased name and type
// tag ("DB"/"DATABLOCK" for data blocks, "FB"/"F BLOCK" for function
// blocks). Each listing applies its own rule, so a block such as "FBDB1"
// shows up in both the data and the function listing.
package blocks
