// Package network resolves the elastic network interface behind each
// running ECS task. The interface supplies a task's public IP for the task
// list and the subnet and security groups copied onto newly launched tasks.
package network
