// Package stores provides the SQLite inspection history for tiabridge.
// Every recorded run of list-blocks creates an inspection row; the units of
// each listing are stored with their position so the listing order can be
// reproduced. The schema is managed with embedded golang-migrate migrations.
package stores
