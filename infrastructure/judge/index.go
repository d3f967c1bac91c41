package judge

import (
	"os"

	judge_types "github.com/louskac/VHP/infrastructure/judge/types"
	"github.com/louskac/VHP/infrastructure/logger"
	"github.com/louskac/VHP/infrastructure/network"
)

var JudgeService judge_types.VisionJudge

// InitialiseJudgeService wires the remote judge client. Simulated results
// are only permitted outside production deployments.
func InitialiseJudgeService() {
	baseURL := os.Getenv("JUDGE_BASE_URL")
	if baseURL == "" {
		logger.Warning("JUDGE_BASE_URL not set, AI challenge judgment will fail")
	}
	JudgeService = &RemoteJudge{
		Network: &network.NetworkController{
			BaseUrl: baseURL,
		},
		AllowSimulatedResult: os.Getenv("APP_ENV") != "production" && os.Getenv("JUDGE_ALLOW_SIMULATED") == "true",
	}
	logger.Info("judge service initialised")
}
