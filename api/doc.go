// Package api exposes the game service over HTTP with gorilla/mux.
//
// Sessions:
//   - POST   /api/sessions                      create ({"config_id": "classic"}, optional)
//   - GET    /api/sessions                      list (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/{id}                 session info with state
//   - DELETE /api/sessions/{id}                 delete
//
// Turns:
//   - GET  /api/sessions/{id}/state
//   - POST /api/sessions/{id}/roll
//   - POST /api/sessions/{id}/select           {"token": 0}
//   - POST /api/sessions/{id}/use-die          {"token": 0, "value": 5} (token optional if selected)
//   - POST /api/sessions/{id}/move             {"player": 0, "token": 0, "steps": 7}
//   - POST /api/sessions/{id}/bonus            {"player": 0, "token": 0, "amount": 10}
//   - POST /api/sessions/{id}/end-turn
//   - POST /api/sessions/{id}/reset
//   - GET  /api/sessions/{id}/history          ?page=1&limit=20&order=desc
//   - GET  /api/sessions/{id}/players/{player}/finished
//
// Rulesets:
//   - GET  /api/configs
//   - GET  /api/configs/{name}
//   - POST /api/configs                        engine.GameConfig body, ?id= overrides the file id
//
// Other:
//   - GET /api/health
//   - GET /ws?session={id}                     live state (see transport/websocket)
//
// A rejected move is still a 200: the body's outcome explains why. Errors
// come back as {"error": "..."} with 404 for unknown sessions or rulesets,
// 400 for bad ids, amounts or bodies, and 409 for actions out of turn
// order such as rolling twice.
package api
