// Package common provides the data structures shared by the dDoc client and
// server: the HTTP wire protocol, the configuration of both sides and the
// logger setup.
//
// Key Components:
//
//   - NextRangeRequest / NextRangeResponse / ReturnRangeRequest: bodies of the
//     two Hi-Lo endpoints. HiloDocument exposes a counter document, Topology the
//     cluster nodes, and ErrorResponse every non-2xx answer.
//
//   - ServerConfig: configuration of a server node, including the hosted
//     databases, its node tag and the RAFT parameters for raft backed databases.
//     Provides utilities for converting to Dragonboat-specific configurations.
//
//   - ClientConfig: configuration of the client, controlling endpoints,
//     timeouts, retries, node selection and the Hi-Lo capacity.
//
//   - Logger: custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
