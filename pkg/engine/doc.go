/*
Package engine keeps a local copy of a user's workspace tree and
synchronizes it with the backend optimistically.

Every mutation follows the same sequence:

 1. validate input; errors here are ValidationError and publish nothing
 2. apply the change to the local tree
 3. publish the *_OPTIMISTIC event
 4. commit through the Gateway under the commit timeout
 5. publish the confirmation, or revert the tree and publish *_FAILED
    followed by an error NOTIFICATION

Entities created locally get a temporary id (temp_<ms>_<suffix>). Any
operation naming a temporary id waits for the create to finish and then
uses the server id; if the create failed, deletes succeed trivially and
other operations fail with reconciler.ErrCreateFailed.

Tab content edits are merged into the tab immediately and written after
a quiet window (DefaultDebounceWindow), coalescing fragments per tab.
Flush writes everything pending, and Close flushes before stopping.

# Usage

	gw := gateway.NewHTTPClient(cfg.Backend.URL, token)
	eng := engine.New(gw, engine.Options{
		Credentials: security.NewSessionCredentials(password),
	})
	defer eng.Close(context.Background())

	if _, err := eng.Load(ctx); err != nil {
		return err
	}
	project, err := eng.CreateProject(ctx, "Tower")
*/
package engine
