// Package boardlist binds a board list to a remotely resolved query and
// persists inline renames of that query.
//
// A List resolves its input once into a shared stream:
//
//	Input (query or id) -> QueryResolver -> stream.Shared[*QueryEntity] -> rendering
//	                                                 |
//	Rename(name) -> debounce -> dedup -> rule -> commit (mutate Name, DataMapper.Patch)
//
// Pre-resolved queries are delivered synchronously. Identifiers are fetched
// once through the DataMapper while a loading indicator stays visible for at
// least the configured minimum duration. Renames settle after a quiet period;
// only settled values that differ from the last committed name reach the
// DataMapper, one commit at a time.
//
// Destroy tears everything down: pending timers are stopped, stream
// subscriptions are dropped and no indicator toggle or persistence call runs
// afterwards.
package boardlist
