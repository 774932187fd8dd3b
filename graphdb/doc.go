// Package graphdb merges the tenant node into an environment's Neo4j graph.
package graphdb
