/*
Package broker implements a keyed publish/subscribe and request/response message bus.

Channels are (key type, message type) pairs declared on a Builder before Build. After Build
the set of channels is fixed; endpoints are obtained with the generic getters:

	b := broker.NewBuilder()
	broker.MustDeclareChannel[domain.ChannelKey, ScoreChanged](b)
	br, _ := b.Build()

	sub, _ := broker.GetSubscriber[domain.ChannelKey, ScoreChanged](br)
	s, _ := sub.Subscribe(domain.KeyStat, func(m ScoreChanged) { ... })
	defer s.Dispose()

	pub, _ := broker.GetPublisher[domain.ChannelKey, ScoreChanged](br)
	pub.Publish(domain.KeyStat, ScoreChanged{Value: 10})

Publishing is live: subscribers receive messages in registration order and nothing is
buffered for late subscribers. Request handlers are one per (request, response) pair.

A process-wide broker is created once and passed to whoever needs it. A Scope owns a
private broker rebuilt per session.
*/
package broker
