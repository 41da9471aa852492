// Package game implements the per-user guessing game state machine.
//
// The main type is Controller. Gateways translate chat updates into Events
// and render the returned Reply:
//
//	c := game.NewController(session.NewStore(), records.NewTracker(records.HolderFirst, nil))
//	reply := c.Handle(game.Start{From: user})
//	// send reply.Text with reply.Buttons
//
// Two modes are supported. In guess_human the agent guesses a number the
// player has in mind and the player answers with Higher/Lower/Correct
// buttons whose tokens are produced by package action. In guess_bot the
// agent picks a secret and the player sends text guesses until they find it
// or run out of attempts.
//
// # Deterministic Testing
//
// Randomness and time are injected:
//
//	c := game.NewController(store, tracker,
//	    game.WithRand(randutil.New(42)),
//	    game.WithClock(quartz.NewMock(t)))
//
// # Concurrency
//
// Handle may be called from many goroutines. Events for one user are
// serialised through the session store's per-user lock; events for
// different users do not wait for each other.
package game
