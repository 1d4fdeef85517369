/*
Package events provides an in-memory broker for task lifecycle events.

The manager publishes an event whenever it changes the cluster or the registry:

	task.created         name registered and RunTask accepted
	task.launch_failed   name registered but RunTask failed or reported failures
	task.stopped         StopTask accepted
	task.deleted         name removed from the registry

Delivery is best effort. Publish never blocks: the broker queues up to 100
events, each subscriber buffers up to 50, and events that do not fit are
dropped and counted in burrow_events_dropped_total. `burrow serve` streams the
events at GET /v1/events, optionally filtered with ?type=task.created,task.stopped.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe(events.EventTaskCreated, events.EventTaskLaunchFailed)
	defer broker.Unsubscribe(sub)
	for ev := range sub {
		fmt.Println(ev.Type, ev.Metadata["name"])
	}
*/
package events
