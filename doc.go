/*
Package prefixserver is a small HTTP/1.x server that routes each request to a
pluggable handler chosen by longest matching URL prefix.

Every connection carries exactly one request. The server reads until the
request is framed (header terminator plus any Content-Length body), hands it
to the router, writes a single response with "Connection: close" and closes
the socket. A connection that stops sending before its request is complete is
shut down when its inactivity timer fires.

Quick Start

	prefix-server serve -c server.yaml

with a route table such as

	routes:
	  - location: /
	    handler: NotFoundHandler
	  - location: /echo
	    handler: EchoHandler
	  - location: /static
	    handler: StaticHandler
	    params:
	      root: ./www

Custom handler types are registered on a handler.Registry before the server
starts; see examples/basic.

Modules

  - app: Application lifecycle, route table construction
  - config: Configuration loading (file, environment, flags)
  - logging: slog construction and rotating log files
  - core: Acceptor and per-connection session state machine
  - core/http: Request framing, parsing and response serialization
  - core/handler: Handler capability and name-keyed registry
  - core/router: Longest-prefix router
  - core/handlers: Built-in handler types
  - core/storage: Document stores for the CRUD handler
  - core/pools: Buffer pools and runtime tuning
  - core/observability: Per-handler request metrics
*/
package prefixserver
