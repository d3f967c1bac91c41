package messagequeue

import (
	"github.com/louskac/VHP/infrastructure/message_queue/asynq"
	mq_types "github.com/louskac/VHP/infrastructure/message_queue/types"
)

var TaskQueue mq_types.TaskQueueBroker = &asynq.AsynqBroker{}

func StartQueue() {
	TaskQueue.Start()
}
