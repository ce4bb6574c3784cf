// Package influxdb records robot call metrics in InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking write API: points are buffered
// and flushed in batches (batch_size, flush_interval), so writing never
// delays a tool call. Asynchronous write failures are reported through the
// SetOnError callback.
//
// Every completed call becomes one point in the "robot_calls" measurement:
//
//	robot_calls,tool=set_cleaning,endpoint=robot/ctl,method=post,outcome=ok code=0i,duration_ms=182i,items=0i
//
// Tags are low cardinality; the robot nickname is deliberately not a tag.
package influxdb
