/*
Copyright 2023- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package state

// Query is the single sink that query dispositions feed into.
var Query = Expr{Kind: KindQuery}

func vrfScoped(k Kind, node, vrf string) Expr {
	return Expr{Kind: k, Node: node, VRF: vrf}
}

func ifaceScoped(k Kind, node, iface string) Expr {
	return Expr{Kind: k, Node: node, Iface: iface}
}

func edgeScoped(k Kind, node1, iface1, node2, iface2 string) Expr {
	return Expr{Kind: k, Node: node1, Iface: iface1, Node2: node2, Iface2: iface2}
}

func nodeScoped(k Kind, node string) Expr {
	return Expr{Kind: k, Node: node}
}

// OriginateVrf: flows originated by a device in one of its VRFs.
func OriginateVrf(node, vrf string) Expr { return vrfScoped(KindOriginateVrf, node, vrf) }

// OriginateInterface: flows originated by a device with the source address of an interface.
func OriginateInterface(node, iface string) Expr {
	return ifaceScoped(KindOriginateInterface, node, iface)
}

// OriginateInterfaceLink: flows entering a device from the link of an interface.
func OriginateInterfaceLink(node, iface string) Expr {
	return ifaceScoped(KindOriginateInterfaceLink, node, iface)
}

func PreInInterface(node, iface string) Expr  { return ifaceScoped(KindPreInInterface, node, iface) }
func PostInInterface(node, iface string) Expr { return ifaceScoped(KindPostInInterface, node, iface) }

func PacketPolicyStatement(node, vrf, policy string) Expr {
	return Expr{Kind: KindPacketPolicyStatement, Node: node, VRF: vrf, Policy: policy}
}

func PacketPolicyAction(node, vrf, policy, action string) Expr {
	return Expr{Kind: KindPacketPolicyAction, Node: node, VRF: vrf, Policy: policy, Action: action}
}

func PostInVrf(node, vrf string) Expr        { return vrfScoped(KindPostInVrf, node, vrf) }
func PreOutVrf(node, vrf string) Expr        { return vrfScoped(KindPreOutVrf, node, vrf) }
func VrfAccept(node, vrf string) Expr        { return vrfScoped(KindVrfAccept, node, vrf) }
func PostInVrfSession(node, vrf string) Expr { return vrfScoped(KindPostInVrfSession, node, vrf) }
func PreOutVrfSession(node, vrf string) Expr { return vrfScoped(KindPreOutVrfSession, node, vrf) }

func InterfaceAccept(node, iface string) Expr { return ifaceScoped(KindInterfaceAccept, node, iface) }

func PreOutEdge(node1, iface1, node2, iface2 string) Expr {
	return edgeScoped(KindPreOutEdge, node1, iface1, node2, iface2)
}

func PreOutEdgePostNat(node1, iface1, node2, iface2 string) Expr {
	return edgeScoped(KindPreOutEdgePostNat, node1, iface1, node2, iface2)
}

func PreOutEdgeSession(node1, iface1, node2, iface2 string) Expr {
	return edgeScoped(KindPreOutEdgeSession, node1, iface1, node2, iface2)
}

func PreOutInterfaceDeliveredToSubnet(node, iface string) Expr {
	return ifaceScoped(KindPreOutInterfaceDeliveredToSubnet, node, iface)
}

func PreOutInterfaceExitsNetwork(node, iface string) Expr {
	return ifaceScoped(KindPreOutInterfaceExitsNetwork, node, iface)
}

func PreOutInterfaceInsufficientInfo(node, iface string) Expr {
	return ifaceScoped(KindPreOutInterfaceInsufficientInfo, node, iface)
}

func PreOutInterfaceNeighborUnreachable(node, iface string) Expr {
	return ifaceScoped(KindPreOutInterfaceNeighborUnreachable, node, iface)
}

func SetupSessionDeliveredToSubnet(node, iface string) Expr {
	return ifaceScoped(KindSetupSessionDeliveredToSubnet, node, iface)
}

func SetupSessionExitsNetwork(node, iface string) Expr {
	return ifaceScoped(KindSetupSessionExitsNetwork, node, iface)
}

func NodeAccept(node string) Expr        { return nodeScoped(KindNodeAccept, node) }
func NodeDropAclIn(node string) Expr     { return nodeScoped(KindNodeDropAclIn, node) }
func NodeDropAclOut(node string) Expr    { return nodeScoped(KindNodeDropAclOut, node) }
func NodeDropNoRoute(node string) Expr   { return nodeScoped(KindNodeDropNoRoute, node) }
func NodeDropNullRoute(node string) Expr { return nodeScoped(KindNodeDropNullRoute, node) }

func NodeInterfaceDeliveredToSubnet(node, iface string) Expr {
	return ifaceScoped(KindNodeInterfaceDeliveredToSubnet, node, iface)
}

func NodeInterfaceExitsNetwork(node, iface string) Expr {
	return ifaceScoped(KindNodeInterfaceExitsNetwork, node, iface)
}

func NodeInterfaceInsufficientInfo(node, iface string) Expr {
	return ifaceScoped(KindNodeInterfaceInsufficientInfo, node, iface)
}

func NodeInterfaceNeighborUnreachable(node, iface string) Expr {
	return ifaceScoped(KindNodeInterfaceNeighborUnreachable, node, iface)
}
