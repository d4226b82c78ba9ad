package mqtt

// Topic builders. node is a target's node id, key a field key.

func (p *Publisher) bridgeStatusTopic() string {
	return p.cfg.BaseTopic + "/status"
}

func (p *Publisher) availabilityTopic(node string) string {
	return p.cfg.BaseTopic + "/" + node + "/availability"
}

func (p *Publisher) stateTopic(node string) string {
	return p.cfg.BaseTopic + "/" + node + "/state"
}

func (p *Publisher) attributesTopic(node, key string) string {
	return p.cfg.BaseTopic + "/" + node + "/" + key + "/attributes"
}

func (p *Publisher) discoveryTopic(node, key string) string {
	return p.cfg.DiscoveryPrefix + "/sensor/" + node + "/" + key + "/config"
}

// hostStatusTopic is where Home Assistant announces its own birth and will.
func (p *Publisher) hostStatusTopic() string {
	return p.cfg.DiscoveryPrefix + "/status"
}

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)
