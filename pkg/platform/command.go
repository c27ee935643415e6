package platform

// Command represents a discrete application operation with its specific
// configuration.
//
// Each implementation carries the parameters for one operation; Parse builds
// the command from CLI arguments and Main dispatches it to the matching App
// method. Adding an operation means adding a type here, a case in Main, and
// a method on App.
type Command interface {
	// Name returns the command identifier used for routing. It matches the
	// CLI sub-command name.
	Name() string
}

// MigrateCommand initializes or updates database schemas to match the
// current data model. Structural changes only; no data moves between
// backends. Safe to run repeatedly.
//
// In replicated mode both stores are migrated so the pair starts with
// compatible schemas.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string { return "migrate" }

// RunCommand starts the HTTP server with the full REST API, the websocket
// event stream, and, in replicated mode, the background sync loop. The
// server runs until the context is canceled and then shuts down gracefully.
type RunCommand struct{}

func (c *RunCommand) Name() string { return "run" }

// SyncCommand performs one catch-up synchronization pass between the primary
// and secondary stores.
//
// Direction "forward" copies primary to secondary; "reverse" copies
// secondary to primary for rollback scenarios. Since/Until bound the
// timestamp window in RFC3339; Since defaults to 24 hours ago and Until to
// now. The operation is idempotent and can be re-run with overlapping
// windows.
type SyncCommand struct {
	Direction string
	Since     string
	Until     string
}

func (c *SyncCommand) Name() string { return "sync" }

// OrchestrateCommand runs the sync orchestrator over a YAML topology of
// named stores and sync pairs, continuously, until interrupted.
type OrchestrateCommand struct {
	// Once runs a single cycle for every pair and exits instead of
	// scheduling.
	Once bool
}

func (c *OrchestrateCommand) Name() string { return "orchestrate" }
